// Package pipeline runs one prediction job end to end: load fixtures and
// cache, serve hits, retry misses against the model site, then persist the
// output, the updated cache, and the published report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/supermms/betfair-tips/internal/cache"
	"github.com/supermms/betfair-tips/internal/domain"
	"github.com/supermms/betfair-tips/internal/notify"
)

// Source produces a prediction for one odds triple. In production this is
// the retrier over browser workers; tests plug in fakes.
type Source interface {
	Do(ctx context.Context, key string, triple domain.OddsTriple) (domain.Prediction, error)
}

// ProvisionFunc builds the Source on demand. It is invoked only when the
// pre-scan finds at least one cache miss, so a fully cached run never pays
// for browser setup.
type ProvisionFunc func(ctx context.Context) (Source, error)

// LoadFunc supplies the run's work items.
type LoadFunc func(ctx context.Context) ([]domain.WorkItem, error)

// WriteFunc persists the run's result rows.
type WriteFunc func(ctx context.Context, rows []domain.ResultRow) error

// PublishFunc publishes the run's result rows as a report.
type PublishFunc func(ctx context.Context, rows []domain.ResultRow) error

// Summary captures the counters of one run.
type Summary struct {
	RunID       string
	Date        string
	Input       int
	CacheHits   int
	Attempted   int
	Solved      int
	Skipped     int
	Output      int
	CacheBefore int
	CacheAfter  int
	Duration    time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"run %s (%s): %d fixtures, %d cache hits, %d attempted, %d solved, %d skipped, %d written, cache %d -> %d, took %s",
		s.RunID, s.Date, s.Input, s.CacheHits, s.Attempted, s.Solved, s.Skipped, s.Output,
		s.CacheBefore, s.CacheAfter, s.Duration.Round(time.Second),
	)
}

// Orchestrator wires the run: input loading, cache, prediction source, and
// the output/report/notification sinks.
type Orchestrator struct {
	load      LoadFunc
	write     WriteFunc
	cache     *cache.Cache
	provision ProvisionFunc
	publish   PublishFunc
	notifier  *notify.Notifier
	date      string
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. publish and notifier may be nil.
func NewOrchestrator(
	load LoadFunc,
	write WriteFunc,
	c *cache.Cache,
	provision ProvisionFunc,
	publish PublishFunc,
	notifier *notify.Notifier,
	date string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		load:      load,
		write:     write,
		cache:     c,
		provision: provision,
		publish:   publish,
		notifier:  notifier,
		date:      date,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// Run executes one job. Failures to load input, provision the source, or
// write output are fatal; a failed cache save, report upload, or
// notification only degrades the run and is logged. The returned Summary is
// valid whenever err is nil.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := Summary{
		RunID: uuid.NewString(),
		Date:  o.date,
	}
	logger := o.logger.With(slog.String("run_id", sum.RunID))
	logger.InfoContext(ctx, "run starting", slog.String("date", o.date))

	// Input and cache come from independent stores; fetch them in parallel.
	var items []domain.WorkItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = o.load(gctx)
		if err != nil {
			return fmt.Errorf("pipeline: load input: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		o.cache.Load(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum.Input = len(items)
	sum.CacheBefore = o.cache.CompletePairs()

	// Provision the browser source only if something actually misses.
	misses := 0
	for _, it := range items {
		if _, ok := o.cache.Lookup(it.Key); !ok {
			misses++
		}
	}

	var source Source
	if misses > 0 {
		logger.InfoContext(ctx, "provisioning prediction source",
			slog.Int("misses", misses),
			slog.Int("items", len(items)),
		)
		var err error
		source, err = o.provision(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("pipeline: provision source: %w", err)
		}
	} else {
		logger.InfoContext(ctx, "all items cached, skipping source provisioning",
			slog.Int("items", len(items)),
		)
	}

	rows := make([]domain.ResultRow, 0, len(items))
	for _, it := range items {
		if pred, ok := o.cache.Lookup(it.Key); ok {
			sum.CacheHits++
			rows = append(rows, domain.ResultRow{WorkItem: it, Prediction: pred})
			continue
		}

		sum.Attempted++
		pred, err := source.Do(ctx, it.Key, it.Triple)
		if err != nil {
			if ctx.Err() != nil {
				return Summary{}, fmt.Errorf("pipeline: run cancelled: %w", ctx.Err())
			}
			if errors.Is(err, domain.ErrRetriesExhausted) {
				// The item is skipped entirely: no output row, no cache entry.
				sum.Skipped++
				logger.WarnContext(ctx, "item exhausted retries, skipping",
					slog.String("key", it.Key),
					slog.String("home", it.Home),
					slog.String("away", it.Away),
					slog.String("error", err.Error()),
				)
				continue
			}
			return Summary{}, fmt.Errorf("pipeline: item %s: %w", it.Key, err)
		}

		sum.Solved++
		o.cache.Upsert(it.Key, it.Triple, pred)
		rows = append(rows, domain.ResultRow{WorkItem: it, Prediction: pred})
	}

	if err := o.write(ctx, rows); err != nil {
		return Summary{}, fmt.Errorf("pipeline: write output: %w", err)
	}
	sum.Output = len(rows)

	if err := o.cache.Save(ctx); err != nil {
		logger.ErrorContext(ctx, "cache save failed, results still written",
			slog.String("error", err.Error()),
		)
	}
	sum.CacheAfter = o.cache.CompletePairs()

	if o.publish != nil {
		if err := o.publish(ctx, rows); err != nil {
			logger.ErrorContext(ctx, "report publish failed", slog.String("error", err.Error()))
		}
	}

	sum.Duration = time.Since(start)
	if o.notifier != nil {
		if err := o.notifier.Send(ctx, "Betfair tips run finished", sum.String()); err != nil {
			logger.WarnContext(ctx, "run notification failed", slog.String("error", err.Error()))
		}
	}

	logger.InfoContext(ctx, "run finished",
		slog.Int("input", sum.Input),
		slog.Int("cache_hits", sum.CacheHits),
		slog.Int("attempted", sum.Attempted),
		slog.Int("solved", sum.Solved),
		slog.Int("skipped", sum.Skipped),
		slog.Int("output", sum.Output),
		slog.Int("cache_before", sum.CacheBefore),
		slog.Int("cache_after", sum.CacheAfter),
		slog.Duration("duration", sum.Duration),
	)
	return sum, nil
}
