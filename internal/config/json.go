package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/chatattach/internal/flagx"
	"github.com/dmitrijs2005/chatattach/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	CacheDir               string         `json:"cache_dir"`
	DisableDiskCache       bool           `json:"disable_disk_cache"`
	MemoryCacheEntries     int            `json:"memory_cache_entries"`
	StagingDir             string         `json:"staging_dir"`
	DatabaseDSN            string         `json:"database_dsn"`
	S3Endpoint             string         `json:"s3_endpoint"`
	S3Region               string         `json:"s3_region"`
	S3Bucket               string         `json:"s3_bucket"`
	S3User                 string         `json:"s3_user"`
	S3Password             string         `json:"s3_password"`
	TransferTimeout        timex.Duration `json:"transfer_timeout"`
	MaxConcurrentTransfers int            `json:"max_concurrent_transfers"`
	Encrypt                bool           `json:"encrypt"`
	EncryptionSalt         string         `json:"encryption_salt"`
	LogLevel               string         `json:"log_level"`
	LogJSON                bool           `json:"log_json"`
	MetricsAddr            string         `json:"metrics_addr"`
}

func fromConfig(c *Config) JsonConfig {
	return JsonConfig{
		CacheDir:               c.CacheDir,
		DisableDiskCache:       c.DisableDiskCache,
		MemoryCacheEntries:     c.MemoryCacheEntries,
		StagingDir:             c.StagingDir,
		DatabaseDSN:            c.DatabaseDSN,
		S3Endpoint:             c.S3Endpoint,
		S3Region:               c.S3Region,
		S3Bucket:               c.S3Bucket,
		S3User:                 c.S3User,
		S3Password:             c.S3Password,
		TransferTimeout:        timex.Duration{Duration: c.TransferTimeout},
		MaxConcurrentTransfers: c.MaxConcurrentTransfers,
		Encrypt:                c.Encrypt,
		EncryptionSalt:         c.EncryptionSalt,
		LogLevel:               c.LogLevel,
		LogJSON:                c.LogJSON,
		MetricsAddr:            c.MetricsAddr,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.CacheDir = jc.CacheDir
	c.DisableDiskCache = jc.DisableDiskCache
	c.MemoryCacheEntries = jc.MemoryCacheEntries
	c.StagingDir = jc.StagingDir
	c.DatabaseDSN = jc.DatabaseDSN
	c.S3Endpoint = jc.S3Endpoint
	c.S3Region = jc.S3Region
	c.S3Bucket = jc.S3Bucket
	c.S3User = jc.S3User
	c.S3Password = jc.S3Password
	c.TransferTimeout = jc.TransferTimeout.Duration
	c.MaxConcurrentTransfers = jc.MaxConcurrentTransfers
	c.Encrypt = jc.Encrypt
	c.EncryptionSalt = jc.EncryptionSalt
	c.LogLevel = jc.LogLevel
	c.LogJSON = jc.LogJSON
	c.MetricsAddr = jc.MetricsAddr
}

// parseJson overlays cfg with values from the file named by -c or -config.
// The DTO is seeded from cfg, so keys absent from the file keep their value.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := fromConfig(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}
	jc.apply(cfg)
}
