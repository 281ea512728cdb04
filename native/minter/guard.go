package minter

import "fmt"

// assertMinter fails unless caller is the configured minter and minting is active.
// The minter check runs first so unknown callers never learn the active state.
func assertMinter(cfg *Config, caller string) error {
	if cfg == nil || caller == "" || caller != cfg.Minter {
		return fmt.Errorf("%w: must be a minter", ErrUnauthorized)
	}
	if !cfg.Active {
		return ErrInactive
	}
	return nil
}

// assertAdmin fails unless caller is the configured admin.
func assertAdmin(cfg *Config, caller string) error {
	if cfg == nil || caller == "" || caller != cfg.Admin {
		return fmt.Errorf("%w: must be an admin", ErrUnauthorized)
	}
	return nil
}
