// Package archive persists decode records into a Lode dataset.
//
// Records are Hive-partitioned by source, day, session_id and record_kind.
// Storage is a local filesystem, S3 (or an S3-compatible provider), or an
// in-memory store in tests.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/policy"
	"github.com/pithecene-io/ddmscope/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "ddmscope"

// Config holds the dataset ID and partition values of one session.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source is the partition key naming the stream origin.
	Source string
	// Day is the partition key derived from the session start (YYYY-MM-DD UTC).
	Day string
	// SessionID is the partition key for the session.
	SessionID string
}

// ConfigFor returns the archive config of a session.
func ConfigFor(dataset string, meta *types.SessionMeta) Config {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return Config{
		Dataset:   dataset,
		Source:    sanitizePartition(meta.Source),
		Day:       meta.Day(),
		SessionID: meta.SessionID,
	}
}

// sanitizePartition makes v usable as a single Hive path segment.
func sanitizePartition(v string) string {
	if v == "" {
		return "unknown"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "=", "_").Replace(v)
}

// Validate checks that all partition values are set.
func (c Config) Validate() error {
	switch {
	case c.Dataset == "":
		return errors.New("archive: dataset is required")
	case c.Source == "", c.Day == "", c.SessionID == "":
		return errors.New("archive: source, day and session_id are required")
	}
	return nil
}

// LodeClient writes decode records and session summaries to a Lode dataset.
// It implements policy.Sink.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewLodeClient creates a client with filesystem storage rooted at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a client over a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{dataset: ds, config: cfg, storeFactory: factory}, nil
}

func newDataset(id string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(id),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// Config returns the partition config of the client.
func (c *LodeClient) Config() Config {
	return c.config
}

// WriteRecords writes a batch of decode records as one snapshot.
func (c *LodeClient) WriteRecords(ctx context.Context, records []*types.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, toRecordMap(rec, c.config))
	}
	if _, err := c.dataset.Write(ctx, rows, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.datasetPath())
	}
	return nil
}

// WriteSummary writes the final metrics snapshot of the session.
func (c *LodeClient) WriteSummary(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	row := toSummaryMap(snap, completedAt, c.config)
	if _, err := c.dataset.Write(ctx, []any{row}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.datasetPath())
	}
	return nil
}

// PutFile writes a sidecar file (a session report, a capture) next to the
// session's partitions, bypassing the dataset manifest.
// The filename must not contain path separators or "..".
func (c *LodeClient) PutFile(ctx context.Context, filename string, data []byte) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("archive: invalid sidecar filename %q", filename)
	}
	store, err := c.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, c.config.Dataset)
	}
	path := c.FilePath(filename)
	if err := store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, path)
	}
	return nil
}

// FilePath returns the store path of a sidecar file.
// Format: datasets/<dataset>/partitions/source=<s>/day=<d>/session_id=<id>/files/<filename>
func (c *LodeClient) FilePath(filename string) string {
	return fmt.Sprintf("datasets/%s/partitions/source=%s/day=%s/session_id=%s/files/%s",
		c.config.Dataset, c.config.Source, c.config.Day, c.config.SessionID, filename)
}

func (c *LodeClient) datasetPath() string {
	return "datasets/" + c.config.Dataset
}

func (c *LodeClient) getOrCreateStore() (lode.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	return c.store, c.storeErr
}

// Close releases client resources. The dataset needs no explicit close.
func (c *LodeClient) Close() error {
	return nil
}

// Verify LodeClient implements policy.Sink.
var _ policy.Sink = (*LodeClient)(nil)
