// Package retry runs form-submission attempts under a hard wall-clock
// deadline and repeats them with a fresh worker until a usable prediction
// comes back or the attempt budget is spent. The work function has no
// cancellation hook, so a hung attempt is abandoned, not cancelled: the
// supervisor reports the timeout immediately and reclaims the worker's
// processes out of band.
package retry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/supermms/betfair-tips/internal/domain"
	"github.com/supermms/betfair-tips/internal/reclaim"
)

const (
	// DefaultAttemptTimeout bounds one Submit call.
	DefaultAttemptTimeout = 25 * time.Second
	// DefaultGracePeriod bounds the graceful worker close before escalation.
	DefaultGracePeriod = 3 * time.Second
)

// Supervisor executes a single attempt of a worker's Submit under a hard
// deadline. Exactly one attempt runs at a time; the only concurrency is the
// supervised Submit goroutine racing the deadline timer.
type Supervisor struct {
	timeout   time.Duration
	grace     time.Duration
	killPause time.Duration
	sweeper   *reclaim.NameSweeper
	logger    *slog.Logger
}

// NewSupervisor creates a Supervisor. Zero durations fall back to the
// package defaults; sweeper may be nil when name sweeping is not enabled.
func NewSupervisor(timeout, grace, killPause time.Duration, sweeper *reclaim.NameSweeper, logger *slog.Logger) *Supervisor {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if killPause <= 0 {
		killPause = reclaim.DefaultKillPause
	}
	return &Supervisor{
		timeout:   timeout,
		grace:     grace,
		killPause: killPause,
		sweeper:   sweeper,
		logger:    logger.With(slog.String("component", "supervisor")),
	}
}

type outcome struct {
	pred domain.Prediction
	err  error
}

// Run performs one attempt against the worker. It always returns within the
// attempt timeout on the abandonment path: when the deadline fires, the
// Timeout failure is returned immediately and reclamation proceeds
// concurrently. A late result from the abandoned Submit is discarded.
//
// On normal completion the worker is reclaimed synchronously (bounded by the
// grace window plus the kill pause) before Run returns, so no browser
// session outlives its attempt.
func (s *Supervisor) Run(w domain.Worker, triple domain.OddsTriple) (domain.Prediction, error) {
	done := make(chan outcome, 1) // buffered: an abandoned worker must not block on send

	go func() {
		pred, err := w.Submit(triple)
		done <- outcome{pred: pred, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		s.reclaim(w)
		return s.classify(out)

	case <-timer.C:
		s.logger.Error("attempt deadline exceeded, abandoning worker",
			slog.Duration("timeout", s.timeout),
		)
		go s.reclaim(w)
		return domain.Prediction{}, fmt.Errorf("%w after %s", domain.ErrAttemptTimeout, s.timeout)
	}
}

// classify turns a completed Submit into Success or a typed failure. Both
// texts must be non-empty after boundary cleaning; a blank or null-like text
// is a DomainInvalid failure, retried exactly like a worker fault.
func (s *Supervisor) classify(out outcome) (domain.Prediction, error) {
	if out.err != nil {
		return domain.Prediction{}, fmt.Errorf("%w: %v", domain.ErrWorkerFault, out.err)
	}

	pred := domain.Prediction{
		Back:       domain.CleanText(out.pred.Back),
		Indicators: domain.CleanText(out.pred.Indicators),
	}
	if !pred.Complete() {
		return domain.Prediction{}, fmt.Errorf("%w: back=%q indicators=%q",
			domain.ErrInvalidResult, out.pred.Back, out.pred.Indicators)
	}
	return pred, nil
}

// reclaim tears the worker down with escalation: a graceful Close bounded by
// the grace window, then a forced kill of its processes, then a host-wide
// name sweep (only if the graceful path failed and sweeping is enabled).
// Reclamation swallows every error; it runs during failure unwinding.
func (s *Supervisor) reclaim(w domain.Worker) {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		if err := w.Close(); err != nil {
			s.logger.Warn("worker close failed", slog.String("error", err.Error()))
		}
	}()

	graceTimer := time.NewTimer(s.grace)
	defer graceTimer.Stop()

	select {
	case <-closed:
		return
	case <-graceTimer.C:
	}

	s.logger.Warn("worker close exceeded grace period, force-killing",
		slog.Duration("grace", s.grace),
	)
	w.Kill()
	s.sweeper.Sweep()
}
