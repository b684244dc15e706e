package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"selfAPI/internal/feedsync"
)

type SyncRunner interface {
	RunAll(ctx context.Context) []*feedsync.Result
}

// StartSyncWorker runs every sync source each interval until ctx is done.
// The returned channel closes once the worker has stopped.
func StartSyncWorker(ctx context.Context, runner SyncRunner, interval, timeout time.Duration, logger zerolog.Logger) <-chan struct{} {
	done := make(chan struct{})
	log := logger.With().Str("component", "sync_worker").Logger()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("scheduled sync started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("scheduled sync stopped")
				return
			case <-ticker.C:
				runOnce(ctx, runner, timeout, log)
			}
		}
	}()

	return done
}

func runOnce(ctx context.Context, runner SyncRunner, timeout time.Duration, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var synced, skipped, failed int
	for _, res := range runner.RunAll(ctx) {
		switch res.Status() {
		case feedsync.StatusSkipped:
			skipped++
		case feedsync.StatusFailed:
			failed++
		default:
			synced++
		}
	}

	log.Info().Int("synced", synced).Int("skipped", skipped).Int("failed", failed).Msg("scheduled sync finished")
}
