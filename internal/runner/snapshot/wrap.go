package snapshot

import (
	"context"

	"github.com/bakkerme/jobalert/internal/core"
)

type ConfigProvider interface {
	SnapshotConfig() *core.SnapshotConfig
}

// SourceWrapper replays postings from a snapshot file instead of calling the
// wrapped source when Restore is set, and records fetched postings when
// Snapshot is set.
type SourceWrapper struct {
	core.SourceProcessor
	snapshot *core.SnapshotConfig
}

func (w *SourceWrapper) SnapshotConfig() *core.SnapshotConfig {
	return w.snapshot
}

func (w *SourceWrapper) Fetch(ctx context.Context) ([]core.Posting, error) {
	if w.snapshot.Restore {
		return Load(w.snapshot.Path)
	}
	postings, err := w.SourceProcessor.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if w.snapshot.Snapshot {
		if err := Save(w.snapshot.Path, w.SourceProcessor.Name(), postings); err != nil {
			core.LoggerFromContext(ctx).Warn("failed to save source snapshot", "path", w.snapshot.Path, "error", err)
		}
	}
	return postings, nil
}

func WrapSource(processor core.SourceProcessor, cfg *core.SnapshotConfig) core.SourceProcessor {
	if processor == nil {
		return nil
	}
	if cfg == nil || (!cfg.Snapshot && !cfg.Restore) {
		return processor
	}
	return &SourceWrapper{SourceProcessor: processor, snapshot: cfg}
}
