package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves the gateway keystore passphrase once and caches it. Lookup
// order: the environment variable, a file named by <ENV>_FILE, then an
// interactive prompt on the controlling terminal.
type Source struct {
	envVar string
	prompt func() (string, error)

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source reading envVar before prompting.
func NewSource(envVar string) *Source {
	return &Source{envVar: strings.TrimSpace(envVar), prompt: promptTerminal}
}

// Get returns the cached passphrase or resolves it on first use. Whitespace-only
// passphrases are rejected so the keystore is never left unprotected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
		if s.err == nil && strings.TrimSpace(s.value) == "" {
			s.value, s.err = "", errors.New("gateway keystore passphrase cannot be empty")
		}
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
		if path, ok := os.LookupEnv(s.envVar + "_FILE"); ok && strings.TrimSpace(path) != "" {
			data, err := os.ReadFile(strings.TrimSpace(path))
			if err != nil {
				return "", fmt.Errorf("read %s_FILE: %w", s.envVar, err)
			}
			return strings.TrimRight(string(data), "\r\n"), nil
		}
	}
	if s.prompt == nil {
		return "", errors.New("gateway keystore passphrase required")
	}
	value, err := s.prompt()
	if err != nil && s.envVar != "" {
		return "", fmt.Errorf("%w; set %s or run interactively", err, s.envVar)
	}
	return value, err
}

func promptTerminal() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("gateway keystore passphrase required and no terminal available")
	}
	return readPassword(os.Stderr, int(os.Stdin.Fd()))
}

func readPassword(out io.Writer, fd int) (string, error) {
	fmt.Fprint(out, "Enter gateway keystore passphrase: ")
	bytes, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(bytes), nil
}
