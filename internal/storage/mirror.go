package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// MirrorStats counts what Mirror did.
type MirrorStats struct {
	Copied    int `json:"copied"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
}

// Mirror makes dst under prefix match src under prefix. Objects whose
// checksum already matches are left alone; objects missing from src are
// deleted from dst.
func Mirror(ctx context.Context, src, dst Provider, prefix string, logger *slog.Logger) (MirrorStats, error) {
	var stats MirrorStats
	if logger == nil {
		logger = slog.Default()
	}

	srcObjs, err := src.List(prefix)
	if err != nil {
		return stats, fmt.Errorf("mirror: list source: %w", err)
	}
	dstObjs, err := dst.List(prefix)
	if err != nil {
		return stats, fmt.Errorf("mirror: list destination: %w", err)
	}

	existing := make(map[string]string, len(dstObjs))
	for _, o := range dstObjs {
		existing[o.Key] = o.Checksum
	}

	for _, o := range srcObjs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		sum, ok := existing[o.Key]
		delete(existing, o.Key)
		if ok && sum == o.Checksum {
			stats.Unchanged++
			continue
		}
		data, err := src.Get(o.Key)
		if err != nil {
			return stats, fmt.Errorf("mirror: %w", err)
		}
		if err := dst.Put(o.Key, data); err != nil {
			return stats, fmt.Errorf("mirror: %w", err)
		}
		logger.Debug("mirror: copied", slog.String("key", o.Key))
		stats.Copied++
	}

	for _, o := range dstObjs {
		if _, stale := existing[o.Key]; !stale {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := dst.Delete(o.Key); err != nil {
			return stats, fmt.Errorf("mirror: %w", err)
		}
		logger.Debug("mirror: deleted", slog.String("key", o.Key))
		stats.Deleted++
	}

	logger.Info("mirror: done",
		slog.Int("copied", stats.Copied),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("deleted", stats.Deleted))
	return stats, nil
}
