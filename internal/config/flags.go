package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/chatattach/internal/flagx"
)

// ValueFlags lists every flag that takes a value, including the config file
// flags. Commands use it to find their positional arguments.
var ValueFlags = []string{
	"-c", "-config",
	"-cache-dir", "-mem-entries", "-staging-dir", "-d",
	"-s3-endpoint", "-s3-region", "-s3-bucket", "-s3-user", "-s3-password",
	"-t", "-max-transfers", "-salt", "-log-level", "-metrics-addr",
}

var boolFlags = []string{"-no-disk-cache", "-encrypt", "-log-json"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-cache-dir string      disk cache directory
//	-no-disk-cache         keep the cache in memory only
//	-mem-entries int       memory cache capacity (entries)
//	-staging-dir string    directory for staged binaries
//	-d string              staging database DSN
//	-s3-endpoint string    S3 base endpoint
//	-s3-region string      S3 region
//	-s3-bucket string      S3 bucket
//	-s3-user string        S3 access key
//	-s3-password string    S3 secret key
//	-t int                 transfer timeout (in seconds)
//	-max-transfers int     concurrent transfer limit
//	-encrypt               encrypt attachments with a passphrase
//	-salt string           key derivation salt
//	-log-level string      debug, info, warn or error
//	-log-json              JSON log output
//	-metrics-addr string   serve Prometheus metrics on this address
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, so command words and their arguments pass through.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], ValueFlags[2:], boolFlags...)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "disk cache directory")
	fs.BoolVar(&cfg.DisableDiskCache, "no-disk-cache", cfg.DisableDiskCache, "keep the cache in memory only")
	fs.IntVar(&cfg.MemoryCacheEntries, "mem-entries", cfg.MemoryCacheEntries, "memory cache capacity (entries)")
	fs.StringVar(&cfg.StagingDir, "staging-dir", cfg.StagingDir, "directory for staged binaries")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "staging database DSN")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3 base endpoint")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3User, "s3-user", cfg.S3User, "S3 access key")
	fs.StringVar(&cfg.S3Password, "s3-password", cfg.S3Password, "S3 secret key")
	transferTimeout := fs.Int("t", int(cfg.TransferTimeout.Seconds()), "transfer timeout (in seconds)")
	fs.IntVar(&cfg.MaxConcurrentTransfers, "max-transfers", cfg.MaxConcurrentTransfers, "concurrent transfer limit")
	fs.BoolVar(&cfg.Encrypt, "encrypt", cfg.Encrypt, "encrypt attachments with a passphrase")
	fs.StringVar(&cfg.EncryptionSalt, "salt", cfg.EncryptionSalt, "key derivation salt")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "JSON log output")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Only an explicit -t overrides, so sub-second JSON values survive.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.TransferTimeout = time.Duration(*transferTimeout) * time.Second
		}
	})
}
