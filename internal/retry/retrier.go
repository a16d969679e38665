package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/supermms/betfair-tips/internal/domain"
	"github.com/supermms/betfair-tips/internal/reclaim"
)

// DefaultMaxAttempts is the per-item attempt budget.
const DefaultMaxAttempts = 5

// Retrier repeats supervised attempts for one work item. Every attempt gets
// a brand-new worker from the factory, so a poisoned browser session is
// never reused. There is no backoff between attempts: many cheap fresh
// attempts beat waiting on a flaky channel.
type Retrier struct {
	factory     domain.WorkerFactory
	supervisor  *Supervisor
	maxAttempts int
	registry    *reclaim.Registry
	sweeper     *reclaim.NameSweeper
	killPause   time.Duration
	logger      *slog.Logger
}

// NewRetrier creates a Retrier. maxAttempts <= 0 falls back to the default.
// registry and sweeper drive the extra host-wide reclamation performed after
// a timed-out attempt; sweeper may be nil.
func NewRetrier(
	factory domain.WorkerFactory,
	supervisor *Supervisor,
	maxAttempts int,
	registry *reclaim.Registry,
	sweeper *reclaim.NameSweeper,
	killPause time.Duration,
	logger *slog.Logger,
) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if killPause <= 0 {
		killPause = reclaim.DefaultKillPause
	}
	return &Retrier{
		factory:     factory,
		supervisor:  supervisor,
		maxAttempts: maxAttempts,
		registry:    registry,
		sweeper:     sweeper,
		killPause:   killPause,
		logger:      logger.With(slog.String("component", "retrier")),
	}
}

// Do obtains a prediction for the triple, retrying up to the attempt budget.
// Timeout, worker-fault, and invalid-result failures are all retryable. On
// exhaustion it returns an error that matches both ErrRetriesExhausted and
// the last underlying failure; the caller must then skip the item and write
// nothing anywhere.
func (r *Retrier) Do(ctx context.Context, key string, triple domain.OddsTriple) (domain.Prediction, error) {
	logger := r.logger.With(slog.String("key", key))

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Prediction{}, fmt.Errorf("retry: run cancelled: %w", err)
		}

		logger.InfoContext(ctx, "starting attempt",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.maxAttempts),
		)

		w, err := r.factory.New()
		if err != nil {
			lastErr = fmt.Errorf("%w: create worker: %v", domain.ErrWorkerFault, err)
			logger.WarnContext(ctx, "worker creation failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			continue
		}

		pred, err := r.supervisor.Run(w, triple)
		if err == nil {
			logger.InfoContext(ctx, "attempt succeeded", slog.Int("attempt", attempt))
			return pred, nil
		}
		lastErr = err

		logger.WarnContext(ctx, "attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		// A hung attempt may not have reached its own cleanup, so after a
		// timeout specifically go wider than per-attempt reclamation: kill
		// every registered worker process, then (opt-in) sweep by name.
		if errors.Is(err, domain.ErrAttemptTimeout) {
			if r.registry != nil {
				r.registry.KillAll(r.killPause)
			}
			r.sweeper.Sweep()
		}
	}

	return domain.Prediction{}, fmt.Errorf("%w: %d attempts for %s: %w",
		domain.ErrRetriesExhausted, r.maxAttempts, key, lastErr)
}
