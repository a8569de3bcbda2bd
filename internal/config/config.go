package config

import "time"

// Config holds runtime settings for the attachment service.
//
// Fields:
//   - CacheDir / DisableDiskCache / MemoryCacheEntries: cache tiers.
//   - StagingDir / DatabaseDSN: where pre-upload binaries and their SQLite
//     records live.
//   - S3*: the S3-compatible object store behind the transfer engine.
//   - TransferTimeout / MaxConcurrentTransfers: per-call deadline and the
//     bound on simultaneous transfers.
//   - Encrypt / EncryptionSalt: enable AES-GCM with a passphrase-derived key.
//   - LogLevel / LogJSON: slog level and handler format.
//   - MetricsAddr: listen address for /metrics; empty disables it.
type Config struct {
	CacheDir           string
	DisableDiskCache   bool
	MemoryCacheEntries int

	StagingDir  string
	DatabaseDSN string

	S3Endpoint string
	S3Region   string
	S3Bucket   string
	S3User     string
	S3Password string

	TransferTimeout        time.Duration
	MaxConcurrentTransfers int

	Encrypt        bool
	EncryptionSalt string

	LogLevel string
	LogJSON  bool

	MetricsAddr string
}

// LoadDefaults populates c with development defaults (a local MinIO).
func (c *Config) LoadDefaults() {
	c.CacheDir = "cache"
	c.DisableDiskCache = false
	c.MemoryCacheEntries = 256
	c.StagingDir = "staging"
	c.DatabaseDSN = "staging.db"
	c.S3Endpoint = "http://127.0.0.1:9000/"
	c.S3Region = "us-east-1"
	c.S3Bucket = "attachments"
	c.S3User = "admin"
	c.S3Password = "secretpassword"
	c.TransferTimeout = 30 * time.Second
	c.MaxConcurrentTransfers = 4
	c.Encrypt = false
	c.EncryptionSalt = "chatattach"
	c.LogLevel = "info"
	c.LogJSON = false
	c.MetricsAddr = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
