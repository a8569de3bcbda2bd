// Package config loads runtime configuration for the attachctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Keys missing from the file keep their earlier value. Durations use
// timex.Duration, so they can be strings like "30s" or integer nanoseconds:
//
//	{
//	  "cache_dir": "cache",
//	  "disable_disk_cache": false,
//	  "memory_cache_entries": 256,
//	  "staging_dir": "staging",
//	  "database_dsn": "staging.db",
//	  "s3_endpoint": "http://127.0.0.1:9000/",
//	  "s3_region": "us-east-1",
//	  "s3_bucket": "attachments",
//	  "s3_user": "admin",
//	  "s3_password": "secretpassword",
//	  "transfer_timeout": "30s",
//	  "max_concurrent_transfers": 4,
//	  "encrypt": true,
//	  "encryption_salt": "chatattach",
//	  "log_level": "info",
//	  "log_json": false,
//	  "metrics_addr": ":9100"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
