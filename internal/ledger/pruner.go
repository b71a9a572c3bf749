package ledger

import (
	"context"
	"log/slog"
	"time"
)

// pruneInterval controls how often expired issuances are reaped.
const pruneInterval = time.Hour

// RunPruner removes issuances that expired more than retention ago, once
// at start and then every pruneInterval, until ctx is cancelled.
func (l *Ledger) RunPruner(ctx context.Context, retention time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		l.pruneOnce(retention, logger)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Ledger) pruneOnce(retention time.Duration, logger *slog.Logger) {
	removed, err := l.Prune(time.Now().Add(-retention))
	if err != nil {
		logger.Warn("ledger prune failed", slog.String("error", err.Error()))
		return
	}

	if removed > 0 {
		logger.Info("ledger pruned", slog.Int("removed", removed))
	}
}
