package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	switch c.Storage.Backend {
	case StorageMemory, StorageLevelDB, StorageBolt:
	default:
		return fmt.Errorf("storage: unsupported backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != StorageMemory && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage: path required for %s backend", c.Storage.Backend)
	}
	params, err := c.GenesisParams()
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	if params.Ledger == "" || params.Admin == "" || params.Minter == "" {
		return errors.New("genesis: Ledger, Admin and Minter are required")
	}
	if strings.TrimSpace(c.Auth.HMACSecret) == "" {
		if c.Auth.HMACSecretEnv != "" {
			return fmt.Errorf("auth: HMACSecret missing; set %s", c.Auth.HMACSecretEnv)
		}
		return errors.New("auth: HMACSecret required")
	}
	if endpoint := strings.TrimSpace(c.Ledger.Endpoint); endpoint != "" {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("ledger: invalid endpoint %q", endpoint)
		}
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio %v outside (0, 1]", c.Telemetry.SampleRatio)
	}
	switch c.Receipts.Driver {
	case "":
	case ReceiptsSQLite, ReceiptsPostgres:
		if strings.TrimSpace(c.Receipts.DSN) == "" {
			return fmt.Errorf("receipts: DSN required for %s", c.Receipts.Driver)
		}
	default:
		return fmt.Errorf("receipts: unsupported driver %q", c.Receipts.Driver)
	}
	return nil
}
