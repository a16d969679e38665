package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/supermms/betfair-tips/internal/cache"
	"github.com/supermms/betfair-tips/internal/domain"
	"github.com/supermms/betfair-tips/internal/retry"
)

func item(home string, h, d, a float64) domain.WorkItem {
	triple := domain.OddsTriple{Home: h, Draw: d, Away: a}
	return domain.WorkItem{
		Date: "2026-08-23", League: "E0", Home: home, Away: "Opp",
		Triple: triple,
		Key:    triple.Key(2),
	}
}

type fakeSource struct {
	calls int32
	do    func(key string, triple domain.OddsTriple) (domain.Prediction, error)
}

func (f *fakeSource) Do(_ context.Context, key string, triple domain.OddsTriple) (domain.Prediction, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.do(key, triple)
}

type runSinks struct {
	written     []domain.ResultRow
	published   []domain.ResultRow
	provisioned int32
}

func newOrchestrator(t *testing.T, items []domain.WorkItem, c *cache.Cache, src Source, sinks *runSinks) *Orchestrator {
	t.Helper()
	load := func(context.Context) ([]domain.WorkItem, error) { return items, nil }
	write := func(_ context.Context, rows []domain.ResultRow) error {
		sinks.written = rows
		return nil
	}
	provision := func(context.Context) (Source, error) {
		atomic.AddInt32(&sinks.provisioned, 1)
		return src, nil
	}
	publish := func(_ context.Context, rows []domain.ResultRow) error {
		sinks.published = rows
		return nil
	}
	return NewOrchestrator(load, write, c, provision, publish, nil, "2026-08-23", testLogger())
}

func TestRun_CacheHitNeverInvokesSource(t *testing.T) {
	it := item("Arsenal", 1.85, 3.6, 4.2)
	c := cache.New(nil, 2, true, testLogger())
	c.Upsert(it.Key, it.Triple, domain.Prediction{Back: "Back Home", Indicators: "Strong"})

	src := &fakeSource{do: func(string, domain.OddsTriple) (domain.Prediction, error) {
		return domain.Prediction{}, errors.New("must not be called")
	}}
	sinks := &runSinks{}
	o := newOrchestrator(t, []domain.WorkItem{it}, c, src, sinks)

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.CacheHits != 1 || sum.Attempted != 0 {
		t.Errorf("hits, attempted = %d, %d; want 1, 0", sum.CacheHits, sum.Attempted)
	}
	if atomic.LoadInt32(&src.calls) != 0 {
		t.Error("source invoked on a cache hit")
	}
	if atomic.LoadInt32(&sinks.provisioned) != 0 {
		t.Error("source provisioned although everything was cached")
	}
	if len(sinks.written) != 1 || sinks.written[0].Prediction.Back != "Back Home" {
		t.Errorf("written = %+v", sinks.written)
	}
}

func TestRun_MissGoesThroughSourceAndCaches(t *testing.T) {
	it := item("Leeds", 2.5, 3.2, 2.9)
	c := cache.New(nil, 2, true, testLogger())

	src := &fakeSource{do: func(string, domain.OddsTriple) (domain.Prediction, error) {
		return domain.Prediction{Back: "Back Away", Indicators: "Weak"}, nil
	}}
	sinks := &runSinks{}
	o := newOrchestrator(t, []domain.WorkItem{it}, c, src, sinks)

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Attempted != 1 || sum.Solved != 1 || sum.Skipped != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if pred, ok := c.Lookup(it.Key); !ok || pred.Back != "Back Away" {
		t.Errorf("cache after run: %+v, %v", pred, ok)
	}
	if len(sinks.published) != 1 {
		t.Errorf("published = %d rows, want 1", len(sinks.published))
	}
}

func TestRun_ExhaustedItemIsSkippedRunCompletes(t *testing.T) {
	bad := item("Hangs", 9.9, 9.9, 9.9)
	good := item("Works", 2.0, 3.0, 4.0)
	c := cache.New(nil, 2, true, testLogger())

	src := &fakeSource{do: func(key string, _ domain.OddsTriple) (domain.Prediction, error) {
		if key == bad.Key {
			return domain.Prediction{}, fmt.Errorf("%w: 5 attempts: %w", domain.ErrRetriesExhausted, domain.ErrAttemptTimeout)
		}
		return domain.Prediction{Back: "b", Indicators: "i"}, nil
	}}
	sinks := &runSinks{}
	o := newOrchestrator(t, []domain.WorkItem{bad, good}, c, src, sinks)

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Skipped != 1 || sum.Solved != 1 || sum.Output != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if _, ok := c.Lookup(bad.Key); ok {
		t.Error("exhausted item must not be cached")
	}
	if len(sinks.written) != 1 || sinks.written[0].Home != "Works" {
		t.Errorf("written = %+v", sinks.written)
	}
}

func TestRun_CancelledContextAborts(t *testing.T) {
	it := item("Any", 2.0, 3.0, 4.0)
	c := cache.New(nil, 2, true, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{do: func(string, domain.OddsTriple) (domain.Prediction, error) {
		cancel()
		return domain.Prediction{}, ctx.Err()
	}}
	sinks := &runSinks{}
	o := newOrchestrator(t, []domain.WorkItem{it}, c, src, sinks)

	if _, err := o.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sinks.written != nil {
		t.Error("output must not be written on an aborted run")
	}
}

func TestRun_WriteFailureIsFatal(t *testing.T) {
	it := item("Any", 2.0, 3.0, 4.0)
	c := cache.New(nil, 2, true, testLogger())
	c.Upsert(it.Key, it.Triple, domain.Prediction{Back: "b", Indicators: "i"})

	load := func(context.Context) ([]domain.WorkItem, error) { return []domain.WorkItem{it}, nil }
	write := func(context.Context, []domain.ResultRow) error { return errors.New("bucket gone") }
	provision := func(context.Context) (Source, error) { return nil, errors.New("unused") }
	o := NewOrchestrator(load, write, c, provision, nil, nil, "2026-08-23", testLogger())

	if _, err := o.Run(context.Background()); err == nil {
		t.Fatal("expected write failure to fail the run")
	}
}

// hangingWorker simulates a browser session whose form submission never
// returns; retries must provision fresh workers and eventually succeed.
type hangingWorker struct {
	hang bool
	pred domain.Prediction
}

func (w *hangingWorker) Submit(domain.OddsTriple) (domain.Prediction, error) {
	if w.hang {
		time.Sleep(10 * time.Second)
	}
	return w.pred, nil
}
func (w *hangingWorker) Close() error { return nil }
func (w *hangingWorker) Kill()        {}

type scriptedFactory struct {
	workers []*hangingWorker
	created int32
}

func (f *scriptedFactory) New() (domain.Worker, error) {
	n := int(atomic.AddInt32(&f.created, 1))
	if n > len(f.workers) {
		n = len(f.workers)
	}
	return f.workers[n-1], nil
}

func TestRun_EndToEndRecoversFromHangs(t *testing.T) {
	it := item("Flaky", 2.1, 3.3, 3.4)
	c := cache.New(nil, 2, true, testLogger())

	pred := domain.Prediction{Back: "Back Draw", Indicators: "Medium"}
	factory := &scriptedFactory{workers: []*hangingWorker{
		{hang: true},
		{hang: true},
		{pred: pred},
	}}
	sup := retry.NewSupervisor(50*time.Millisecond, 20*time.Millisecond, time.Millisecond, nil, testLogger())
	retrier := retry.NewRetrier(factory, sup, 5, nil, nil, time.Millisecond, testLogger())

	sinks := &runSinks{}
	o := newOrchestrator(t, []domain.WorkItem{it}, c, retrier, sinks)

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Solved != 1 || sum.Skipped != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if got := atomic.LoadInt32(&factory.created); got != 3 {
		t.Errorf("workers created = %d, want 3", got)
	}
	if got, ok := c.Lookup(it.Key); !ok || got != pred {
		t.Errorf("cache after run: %+v, %v", got, ok)
	}
}
