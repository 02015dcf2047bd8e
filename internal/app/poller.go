package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fadea/fadeclient/internal/records"
	"github.com/fadea/fadeclient/internal/session"
)

// maxBackoff caps the wait between polls after consecutive failures.
const maxBackoff = 30 * time.Second

type syncer interface {
	Sync(ctx context.Context, q session.SyncQuery) (records.MergeResult, error)
}

// StartPoller launches a background goroutine that syncs s every interval,
// backing off exponentially while syncs fail. It returns immediately and
// stops when ctx is cancelled.
func StartPoller(ctx context.Context, s syncer, interval time.Duration, q session.SyncQuery, log zerolog.Logger) {
	if interval <= 0 {
		return
	}
	go func() {
		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(calculateBackoff(failures, interval)):
			}

			res, err := s.Sync(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				log.Warn().Err(err).Int("failures", failures).Msg("auto refresh failed")
				continue
			}
			if failures > 0 {
				log.Info().Int("after_failures", failures).Msg("auto refresh recovered")
			}
			failures = 0
			if res.Added > 0 {
				log.Debug().Int("added", res.Added).Msg("auto refresh merged records")
			}
		}
	}()
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
// An interval already above the cap is used as is.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	if failures > 16 {
		return maxBackoff
	}
	d := base << failures
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
