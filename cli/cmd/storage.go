package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ddmscope/archive"
	"github.com/pithecene-io/ddmscope/cli/config"
)

// storageChoice holds parsed archive storage configuration.
type storageChoice struct {
	dataset   string
	backend   string // "fs" or "s3"
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

// enabled reports whether records are archived at all.
func (sc storageChoice) enabled() bool {
	return sc.path != ""
}

func (sc storageChoice) s3Config() archive.S3Config {
	bucket, prefix := archive.ParseS3Path(sc.path)
	return archive.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       sc.region,
		Endpoint:     sc.endpoint,
		UsePathStyle: sc.pathStyle,
	}
}

func parseStorageChoice(c *cli.Context, cfg *config.Config) (storageChoice, error) {
	sc := storageChoice{
		dataset:   resolveString(c, "storage-dataset", configVal(cfg, func(c *config.Config) string { return c.Storage.Dataset })),
		backend:   resolveString(c, "storage-backend", configVal(cfg, func(c *config.Config) string { return c.Storage.Backend })),
		path:      resolveString(c, "storage-path", configVal(cfg, func(c *config.Config) string { return c.Storage.Path })),
		region:    resolveString(c, "storage-region", configVal(cfg, func(c *config.Config) string { return c.Storage.Region })),
		endpoint:  resolveString(c, "storage-endpoint", configVal(cfg, func(c *config.Config) string { return c.Storage.Endpoint })),
		pathStyle: resolveBool(c, "storage-s3-path-style", configVal(cfg, func(c *config.Config) bool { return c.Storage.S3PathStyle })),
	}
	return sc, validateStorageChoice(sc)
}

func validateStorageChoice(sc storageChoice) error {
	switch sc.backend {
	case "fs", "":
		if sc.endpoint != "" || sc.pathStyle {
			return errors.New("--storage-endpoint and --storage-s3-path-style require --storage-backend=s3")
		}
		return nil
	case "s3":
		if sc.path != "" {
			if bucket, _ := archive.ParseS3Path(sc.path); bucket == "" {
				return fmt.Errorf("--storage-path %q has no bucket (want bucket/prefix)", sc.path)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend: %s (must be fs or s3)", sc.backend)
	}
}

// openArchive creates the archive client of a session.
func openArchive(ctx context.Context, sc storageChoice, cfg archive.Config) (*archive.LodeClient, error) {
	switch sc.backend {
	case "fs", "":
		return archive.NewLodeClient(cfg, sc.path)
	case "s3":
		return archive.NewLodeS3Client(ctx, cfg, sc.s3Config())
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", sc.backend)
	}
}

// openReadDataset opens the archive dataset for queries.
func openReadDataset(ctx context.Context, sc storageChoice) (lode.Dataset, error) {
	if !sc.enabled() {
		return nil, errors.New("--storage-path is required")
	}
	switch sc.backend {
	case "fs", "":
		return archive.NewReadDatasetFS(sc.dataset, sc.path)
	case "s3":
		return archive.NewReadDatasetS3(ctx, sc.dataset, sc.s3Config())
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", sc.backend)
	}
}

// buildStoragePath returns the location of a session's partitions as a URI.
// Unknown backends get the bare partition path.
func buildStoragePath(sc storageChoice, cfg archive.Config) string {
	partition := fmt.Sprintf("datasets/%s/partitions/source=%s/day=%s/session_id=%s",
		cfg.Dataset, cfg.Source, cfg.Day, cfg.SessionID)

	switch sc.backend {
	case "fs", "":
		abs, err := filepath.Abs(sc.path)
		if err != nil {
			abs = sc.path
		}
		return "file://" + filepath.ToSlash(filepath.Join(abs, partition))
	case "s3":
		bucket, prefix := archive.ParseS3Path(sc.path)
		if prefix != "" {
			return fmt.Sprintf("s3://%s/%s/%s", bucket, prefix, partition)
		}
		return fmt.Sprintf("s3://%s/%s", bucket, partition)
	default:
		return partition
	}
}
