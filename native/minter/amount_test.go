package minter

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	valid := map[string]string{
		"1":    "1",
		" 42 ": "42",
		"340282366920938463463374607431768211455": "340282366920938463463374607431768211455",
		"0": "0",
	}
	for raw, want := range valid {
		got, err := ParseAmount(raw)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", raw, err)
		}
		if got.String() != want {
			t.Fatalf("ParseAmount(%q) = %s, want %s", raw, got, want)
		}
	}

	invalid := []string{
		"",
		"-1",
		"+1",
		"1.5",
		"abc",
		"0x10",
		"340282366920938463463374607431768211456",
	}
	for _, raw := range invalid {
		if _, err := ParseAmount(raw); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q): expected ErrInvalidAmount, got %v", raw, err)
		}
	}
}

func TestFormatAmountNil(t *testing.T) {
	if FormatAmount(nil) != "0" {
		t.Fatalf("nil must render as zero")
	}
}
