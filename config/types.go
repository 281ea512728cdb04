package config

import "time"

// Storage selects the key/value backend holding the gateway state.
type Storage struct {
	Backend string `toml:"Backend" yaml:"backend"`
	Path    string `toml:"Path" yaml:"path"`
}

// Genesis holds the one-time initialisation values applied on first start.
type Genesis struct {
	Ledger     string `toml:"Ledger" yaml:"ledger"`
	Admin      string `toml:"Admin" yaml:"admin"`
	Minter     string `toml:"Minter" yaml:"minter"`
	TotalLimit string `toml:"TotalLimit" yaml:"total_limit"`
	UserLimit  string `toml:"UserLimit" yaml:"user_limit"`
}

// Mint tunes request admission.
type Mint struct {
	MinGas       uint64 `toml:"MinGas" yaml:"min_gas"`
	ReferralMemo string `toml:"ReferralMemo" yaml:"referral_memo"`
}

// Auth configures bearer token verification and per-principal throttling.
type Auth struct {
	HMACSecret        string  `toml:"HMACSecret" yaml:"hmac_secret"`
	HMACSecretEnv     string  `toml:"HMACSecretEnv" yaml:"hmac_secret_env"`
	Issuer            string  `toml:"Issuer" yaml:"issuer"`
	Audience          string  `toml:"Audience" yaml:"audience"`
	RequestsPerMinute float64 `toml:"RequestsPerMinute" yaml:"requests_per_minute"`
	Burst             int     `toml:"Burst" yaml:"burst"`
}

// Ledger configures the outbound token ledger client and its dispatcher.
type Ledger struct {
	Endpoint      string        `toml:"Endpoint" yaml:"endpoint"`
	AuthToken     string        `toml:"AuthToken" yaml:"auth_token"`
	AuthTokenEnv  string        `toml:"AuthTokenEnv" yaml:"auth_token_env"`
	KeystorePath  string        `toml:"KeystorePath" yaml:"keystore_path"`
	PassphraseEnv string        `toml:"PassphraseEnv" yaml:"passphrase_env"`
	QueueSize     int           `toml:"QueueSize" yaml:"queue_size"`
	Workers       int           `toml:"Workers" yaml:"workers"`
	Timeout       time.Duration `toml:"Timeout" yaml:"timeout"`
}

// Receipts configures the audit log of committed issuances. An empty driver
// disables it.
type Receipts struct {
	Driver string `toml:"Driver" yaml:"driver"`
	DSN    string `toml:"DSN" yaml:"dsn"`
}

// Log configures the structured log sink.
type Log struct {
	Level      string `toml:"Level" yaml:"level"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"max_size_mb"`
	MaxBackups int    `toml:"MaxBackups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"max_age_days"`
	Compress   bool   `toml:"Compress" yaml:"compress"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint" yaml:"endpoint"`
	Insecure bool   `toml:"Insecure" yaml:"insecure"`
	Headers  string `toml:"Headers" yaml:"headers"`
	Metrics  bool   `toml:"Metrics" yaml:"metrics"`
	Traces   bool   `toml:"Traces" yaml:"traces"`
	// SampleRatio is the fraction of root traces kept, in (0, 1].
	SampleRatio    float64       `toml:"SampleRatio" yaml:"sample_ratio"`
	MetricInterval time.Duration `toml:"MetricInterval" yaml:"metric_interval"`
}
