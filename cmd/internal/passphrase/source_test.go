package passphrase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSourceFromEnv(t *testing.T) {
	t.Setenv("MINTERD_TEST_PASS", "hunter2")
	src := NewSource("MINTERD_TEST_PASS")
	src.prompt = func() (string, error) { t.Fatalf("prompt must not run"); return "", nil }
	got, err := src.Get()
	if err != nil || got != "hunter2" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pass")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MINTERD_TEST_PASS_FILE", path)
	got, err := NewSource("MINTERD_TEST_PASS").Get()
	if err != nil || got != "from-file" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestSourceRejectsEmpty(t *testing.T) {
	t.Setenv("MINTERD_TEST_PASS", "  ")
	if _, err := NewSource("MINTERD_TEST_PASS").Get(); err == nil {
		t.Fatalf("expected error for blank env value")
	}

	src := NewSource("")
	src.prompt = func() (string, error) { return " ", nil }
	if _, err := src.Get(); err == nil {
		t.Fatalf("expected error for blank prompt value")
	}
}

func TestSourceCachesResult(t *testing.T) {
	calls := 0
	src := NewSource("")
	src.prompt = func() (string, error) {
		calls++
		if calls > 1 {
			return "", errors.New("prompted twice")
		}
		return "secret", nil
	}
	for i := 0; i < 3; i++ {
		if got, err := src.Get(); err != nil || got != "secret" {
			t.Fatalf("call %d: got %q, %v", i, got, err)
		}
	}
}
