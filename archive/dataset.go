package archive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoSummaryFound is returned when no summary record matches the query.
var ErrNoSummaryFound = errors.New("no summary records found")

// NewReadDataset creates a Dataset for reading with the write-path layout
// and codec.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := newDataset(dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return ds, nil
}

// NewReadDatasetFS creates a read Dataset with filesystem storage.
func NewReadDatasetFS(dataset, rootPath string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(rootPath))
}

// NewReadDatasetS3 creates a read Dataset with S3 storage.
func NewReadDatasetS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := NewS3StoreFactory(ctx, s3cfg)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return NewReadDataset(dataset, factory)
}

// Filter selects stored records. Empty fields match everything.
type Filter struct {
	SessionID  string
	Source     string
	RecordKind string
}

func (f Filter) matchesSnapshot(snap *lode.DatasetSnapshot) bool {
	return snapshotMatches(snap, "session_id", f.SessionID) &&
		snapshotMatches(snap, "source", f.Source) &&
		snapshotMatches(snap, "record_kind", f.RecordKind)
}

// matchesRecord applies the filter to record fields, which are authoritative
// over manifest paths.
func (f Filter) matchesRecord(rec map[string]any) bool {
	return (f.SessionID == "" || toString(rec["session_id"]) == f.SessionID) &&
		(f.Source == "" || toString(rec["source"]) == f.Source) &&
		(f.RecordKind == "" || toString(rec["record_kind"]) == f.RecordKind)
}

// QueryLatestSummary returns the most recent summary record matching
// sessionID and source (either may be empty).
func QueryLatestSummary(ctx context.Context, ds lode.Dataset, sessionID, source string) (map[string]any, error) {
	f := Filter{SessionID: sessionID, Source: source, RecordKind: RecordKindSummary}
	var found map[string]any
	err := scanSnapshots(ctx, ds, f, true, func(rec map[string]any) bool {
		found = rec
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoSummaryFound
	}
	return found, nil
}

// QueryRecords returns stored records matching f in write order.
// limit <= 0 returns all of them.
func QueryRecords(ctx context.Context, ds lode.Dataset, f Filter, limit int) ([]map[string]any, error) {
	var out []map[string]any
	err := scanSnapshots(ctx, ds, f, false, func(rec map[string]any) bool {
		out = append(out, rec)
		return limit <= 0 || len(out) < limit
	})
	return out, err
}

// scanSnapshots calls fn for each record matching f until fn returns false.
// Snapshots are ordered by creation time; latestFirst walks them in reverse.
func scanSnapshots(ctx context.Context, ds lode.Dataset, f Filter, latestFirst bool, fn func(map[string]any) bool) error {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return WrapReadError(err, "snapshots")
	}
	if latestFirst {
		snapshots = slices.Clone(snapshots)
		slices.Reverse(snapshots)
	}

	for _, snap := range snapshots {
		if !f.matchesSnapshot(snap) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return WrapReadError(err, fmt.Sprintf("snapshot/%s", snap.ID))
		}
		for _, item := range data {
			rec, ok := item.(map[string]any)
			if !ok || !f.matchesRecord(rec) {
				continue
			}
			if !fn(rec) {
				return nil
			}
		}
	}
	return nil
}

// snapshotMatches reports whether any file of snap lies in the key=value
// partition. An empty value matches every snapshot.
func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue reports whether a Hive-partitioned path contains the
// exact key=value segment (session_id=s-1 does not match session_id=s-10).
func matchesPartitionValue(path, key, value string) bool {
	return slices.Contains(strings.Split(path, "/"), key+"="+value)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
