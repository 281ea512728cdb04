package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alpha-fi/cheddar-maze-minter/native/minter"
)

const (
	StorageMemory  = "memory"
	StorageLevelDB = "leveldb"
	StorageBolt    = "bolt"

	ReceiptsSQLite   = "sqlite"
	ReceiptsPostgres = "postgres"
)

type Config struct {
	ListenAddress string    `toml:"ListenAddress" yaml:"listen_address"`
	DataDir       string    `toml:"DataDir" yaml:"data_dir"`
	Environment   string    `toml:"Environment" yaml:"environment"`
	Storage       Storage   `toml:"Storage" yaml:"storage"`
	Genesis       Genesis   `toml:"Genesis" yaml:"genesis"`
	Mint          Mint      `toml:"Mint" yaml:"mint"`
	Auth          Auth      `toml:"Auth" yaml:"auth"`
	Ledger        Ledger    `toml:"Ledger" yaml:"ledger"`
	Receipts      Receipts  `toml:"Receipts" yaml:"receipts"`
	Log           Log       `toml:"Log" yaml:"log"`
	Telemetry     Telemetry `toml:"Telemetry" yaml:"telemetry"`
}

// Load loads the configuration from the given path. A missing TOML file is created
// with defaults; YAML files must exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if isYAML(path) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	if isYAML(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0])
		}
	}

	cfg.applyDefaults(path)
	cfg.resolveSecrets()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Default returns the configuration written for a fresh node. The genesis section
// still needs real identities and the auth secret must be supplied.
func Default() *Config {
	return &Config{
		ListenAddress: ":8080",
		DataDir:       "./minter-data",
		Storage:       Storage{Backend: StorageLevelDB},
		Genesis: Genesis{
			TotalLimit: "0",
			UserLimit:  "0",
		},
		Mint: Mint{
			MinGas:       minter.DefaultMinMintGas,
			ReferralMemo: minter.DefaultReferralMemo,
		},
		Auth: Auth{
			HMACSecretEnv:     "MINTERD_JWT_SECRET",
			RequestsPerMinute: 600,
			Burst:             50,
		},
		Ledger: Ledger{
			AuthTokenEnv:  "MINTERD_LEDGER_TOKEN",
			PassphraseEnv: "MINTERD_KEYSTORE_PASSPHRASE",
			QueueSize:     1024,
			Workers:       4,
			Timeout:       10 * time.Second,
		},
		Receipts:  Receipts{Driver: ReceiptsSQLite},
		Log:       Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		Telemetry: Telemetry{SampleRatio: 1, MetricInterval: 15 * time.Second},
	}
}

func (c *Config) applyDefaults(configPath string) {
	def := Default()
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = def.ListenAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = def.DataDir
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case StorageLevelDB:
			c.Storage.Path = filepath.Join(c.DataDir, "state")
		case StorageBolt:
			c.Storage.Path = filepath.Join(c.DataDir, "state.db")
		}
	}
	if c.Mint.MinGas == 0 {
		c.Mint.MinGas = def.Mint.MinGas
	}
	if strings.TrimSpace(c.Mint.ReferralMemo) == "" {
		c.Mint.ReferralMemo = def.Mint.ReferralMemo
	}
	if c.Auth.RequestsPerMinute <= 0 {
		c.Auth.RequestsPerMinute = def.Auth.RequestsPerMinute
	}
	if c.Auth.Burst <= 0 {
		c.Auth.Burst = def.Auth.Burst
	}
	if c.Ledger.QueueSize <= 0 {
		c.Ledger.QueueSize = def.Ledger.QueueSize
	}
	if c.Ledger.Workers <= 0 {
		c.Ledger.Workers = def.Ledger.Workers
	}
	if c.Ledger.Timeout <= 0 {
		c.Ledger.Timeout = def.Ledger.Timeout
	}
	if c.Ledger.KeystorePath == "" {
		c.Ledger.KeystorePath = defaultKeystorePath(configPath)
	}
	c.Receipts.Driver = strings.ToLower(strings.TrimSpace(c.Receipts.Driver))
	if c.Receipts.Driver == ReceiptsSQLite && strings.TrimSpace(c.Receipts.DSN) == "" {
		c.Receipts.DSN = filepath.Join(c.DataDir, "receipts.db")
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = def.Telemetry.SampleRatio
	}
	if c.Telemetry.MetricInterval <= 0 {
		c.Telemetry.MetricInterval = def.Telemetry.MetricInterval
	}
}

func (c *Config) resolveSecrets() {
	if c.Auth.HMACSecret == "" && c.Auth.HMACSecretEnv != "" {
		c.Auth.HMACSecret = os.Getenv(c.Auth.HMACSecretEnv)
	}
	if c.Ledger.AuthToken == "" && c.Ledger.AuthTokenEnv != "" {
		c.Ledger.AuthToken = os.Getenv(c.Ledger.AuthTokenEnv)
	}
}

// GenesisParams converts the genesis section into engine initialisation values.
func (c *Config) GenesisParams() (minter.InitParams, error) {
	total, err := minter.ParseAmount(c.Genesis.TotalLimit)
	if err != nil {
		return minter.InitParams{}, fmt.Errorf("invalid Genesis.TotalLimit: %w", err)
	}
	user, err := minter.ParseAmount(c.Genesis.UserLimit)
	if err != nil {
		return minter.InitParams{}, fmt.Errorf("invalid Genesis.UserLimit: %w", err)
	}
	return minter.InitParams{
		Ledger:     strings.TrimSpace(c.Genesis.Ledger),
		Admin:      strings.TrimSpace(c.Genesis.Admin),
		Minter:     strings.TrimSpace(c.Genesis.Minter),
		TotalLimit: total,
		UserLimit:  user,
	}, nil
}

// createDefault creates and saves a default configuration file. The result is not
// usable until the operator fills in the genesis identities.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.Ledger.KeystorePath = defaultKeystorePath(path)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("config file %s created with defaults; fill in the [Genesis] section and restart", path)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "minter.keystore")
}
