// Package cmd provides CLI commands for the ddmscope binary.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/cli/config"
)

// Shared flags for all commands.
var (
	// FormatFlag selects output format: json, jsonl, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, jsonl, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag points at a YAML config file. Defaults to ./ddmscope.yaml
	// when present.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default: ./" + config.DefaultFile + " if present)",
	}

	// LogLevelFlag sets the minimum level of the stderr log.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
		Value: "warn",
	}
)

// ReadOnlyFlags returns the shared flags for commands that only render.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// decodeFlags returns the flags shared by packets and capture decode.
func decodeFlags() []cli.Flag {
	flags := []cli.Flag{
		FormatFlag,
		NoColorFlag,
		ConfigFlag,
		LogLevelFlag,
		&cli.BoolFlag{
			Name:  "chunks",
			Usage: "Expand DDMS chunks and decode FAIL chunks",
		},
		&cli.BoolFlag{
			Name:  "handshake",
			Usage: "Expect the JDWP-Handshake prefix before the first packet",
		},
		&cli.Int64Flag{
			Name:  "max-packets",
			Usage: "Stop after N packets (0 = no limit)",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Source identifier for partitioning (default: input path)",
		},
		&cli.StringFlag{
			Name:  "session-id",
			Usage: "Session ID (default: generated)",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Suppress record and result output",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON session report to this path (- for stderr)",
		},
		// Policy flags
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Archive policy: strict, buffered, streaming, noop (default: strict with --storage-path, else noop)",
		},
		&cli.IntFlag{
			Name:  "buffer-records",
			Usage: "Max buffered records (buffered policy)",
		},
		&cli.Int64Flag{
			Name:  "buffer-bytes",
			Usage: "Max buffer size in bytes (buffered policy)",
		},
		&cli.IntFlag{
			Name:  "flush-count",
			Usage: "Flush after N records (streaming policy)",
		},
		&cli.DurationFlag{
			Name:  "flush-interval",
			Usage: "Flush every interval (streaming policy)",
		},
		&cli.BoolFlag{
			Name:  "flush-on-fail",
			Usage: "Flush as soon as a FAIL chunk is decoded (streaming policy)",
		},
	}
	flags = append(flags, storageFlags()...)
	return append(flags, adapterFlags()...)
}

// storageFlags returns the archive storage flags.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "storage-dataset",
			Usage: "Archive dataset ID",
			Value: "ddmscope",
		},
		&cli.StringFlag{
			Name:  "storage-backend",
			Usage: "Archive storage backend: fs or s3",
			Value: "fs",
		},
		&cli.StringFlag{
			Name:  "storage-path",
			Usage: "Archive storage path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "storage-region",
			Usage: "AWS region for S3 backend (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "storage-endpoint",
			Usage: "Custom S3 endpoint for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "storage-s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}

// adapterFlags returns the notification adapter flags.
func adapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Notify a downstream system when the session ends: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Webhook endpoint or redis:// URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Extra webhook header as Key=Value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-request adapter timeout",
			Value: 10 * time.Second,
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Adapter retry attempts",
			Value: 3,
		},
		&cli.StringFlag{
			Name:  "adapter-secret",
			Usage: "HMAC-SHA256 secret for webhook request signatures",
		},
		&cli.DurationFlag{
			Name:  "adapter-retain",
			Usage: "Keep the latest event per source in Redis for this long",
		},
	}
}
