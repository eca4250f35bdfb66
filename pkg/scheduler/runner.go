package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/tenderscope/pkg/aggregate"
	"github.com/umputun/tenderscope/pkg/digest"
	"github.com/umputun/tenderscope/pkg/domain"
	"github.com/umputun/tenderscope/pkg/history"
)

// Runner drives one complete pass of the pipeline: fan out source adapters,
// classify and aggregate their results against history, render the digest,
// persist history and deliver notifications. Adapters run concurrently, the
// rest of the pipeline is strictly sequential and consumes only complete
// per-source results.
type Runner struct {
	adapters   []Adapter
	aggregator *aggregate.Aggregator
	store      HistoryStore
	renderer   *digest.Renderer
	notifiers  []Notifier

	fetchTimeout time.Duration
	maxWorkers   int

	mu   sync.Mutex
	last *RunStatus
}

// Adapter produces the full candidate list of one source.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Posting, error)
}

// HistoryStore loads and persists the seen-postings record.
type HistoryStore interface {
	Load() history.Record
	Save(rec history.Record) error
}

// Notifier delivers a rendered digest.
type Notifier interface {
	Send(ctx context.Context, d digest.Digest) error
}

// Config holds runner configuration.
type Config struct {
	Adapters     []Adapter
	Aggregator   *aggregate.Aggregator
	Store        HistoryStore
	Renderer     *digest.Renderer
	Notifiers    []Notifier
	FetchTimeout time.Duration
	MaxWorkers   int
}

// RunStatus summarizes the last completed run for operator visibility.
type RunStatus struct {
	Started    time.Time      `json:"started"`
	Finished   time.Time      `json:"finished"`
	Sources    []SourceStatus `json:"sources"`
	NewItems   int            `json:"new_items"`
	Degraded   bool           `json:"degraded"` // history write failed, next run will re-report
	DigestText string         `json:"-"`
}

// SourceStatus reports one source's outcome within a run.
type SourceStatus struct {
	Name       string `json:"name"`
	Candidates int    `json:"candidates"`
	Error      string `json:"error,omitempty"`
}

// NewRunner creates a runner with the provided dependencies.
func NewRunner(cfg Config) *Runner {
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 4
	}
	return &Runner{
		adapters:     cfg.Adapters,
		aggregator:   cfg.Aggregator,
		store:        cfg.Store,
		renderer:     cfg.Renderer,
		notifiers:    cfg.Notifiers,
		fetchTimeout: cfg.FetchTimeout,
		maxWorkers:   cfg.MaxWorkers,
	}
}

// Run executes one pipeline pass. History is persisted only after the digest
// rendered successfully, and before delivery: a flaky transport must not cause
// re-reporting on the next run, the failure is surfaced instead. A history
// write failure does not abort the run, it marks the run degraded.
func (r *Runner) Run(ctx context.Context) error {
	status := &RunStatus{Started: time.Now()}
	lgr.Printf("[INFO] run started, %d sources", len(r.adapters))

	results := r.fetchAll(ctx)
	for _, res := range results {
		ss := SourceStatus{Name: res.Name, Candidates: len(res.Postings)}
		if res.Err != nil {
			ss.Error = res.Err.Error()
		}
		status.Sources = append(status.Sources, ss)
	}

	hist := r.store.Load()
	newItems, updated := r.aggregator.Aggregate(results, hist)
	status.NewItems = len(newItems)

	d := r.renderer.Render(newItems)
	status.DigestText = d.Text

	if err := r.store.Save(updated); err != nil {
		// degraded but not fatal: the old state is intact and the worst
		// outcome is re-reporting on the next run
		lgr.Printf("[ERROR] failed to save history, next run will re-report: %v", err)
		status.Degraded = true
	}

	var sendErrs []error
	for _, n := range r.notifiers {
		if err := n.Send(ctx, d); err != nil {
			sendErrs = append(sendErrs, err)
		}
	}

	status.Finished = time.Now()
	r.setLast(status)
	lgr.Printf("[INFO] run finished: %d new postings, %d sources, took %v",
		len(newItems), len(r.adapters), status.Finished.Sub(status.Started).Round(time.Millisecond))

	if len(sendErrs) > 0 {
		return fmt.Errorf("digest delivery failed: %w", errors.Join(sendErrs...))
	}
	return nil
}

// fetchAll runs all adapters concurrently with a bounded worker pool and a
// per-adapter timeout, returning complete results in adapter order. Adapter
// failures are contained in the per-source result, never returned.
func (r *Runner) fetchAll(ctx context.Context) []domain.SourceResult {
	results := make([]domain.SourceResult, len(r.adapters))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxWorkers)

	for i, adapter := range r.adapters {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
			defer cancel()

			postings, err := adapter.Fetch(fetchCtx)
			if err != nil {
				lgr.Printf("[WARN] source %s failed: %v", adapter.Name(), err)
				results[i] = domain.SourceResult{Name: adapter.Name(), Err: err}
				return nil
			}

			lgr.Printf("[DEBUG] source %s produced %d candidates", adapter.Name(), len(postings))
			results[i] = domain.SourceResult{Name: adapter.Name(), Postings: postings}
			return nil
		})
	}

	_ = g.Wait() // adapter errors never propagate through the group
	return results
}

// Schedule runs the pipeline on a cron schedule until the context is
// canceled. Overlapping runs are skipped, one pass at a time.
func (r *Runner) Schedule(ctx context.Context, cronSpec string, runOnStart bool) error {
	var running sync.Mutex

	runOnce := func() {
		if !running.TryLock() {
			lgr.Printf("[WARN] previous run still in progress, skipping this tick")
			return
		}
		defer running.Unlock()

		if err := r.Run(ctx); err != nil {
			lgr.Printf("[ERROR] scheduled run failed: %v", err)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(cronSpec, runOnce); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", cronSpec, err)
	}

	if runOnStart {
		runOnce()
	}

	c.Start()
	lgr.Printf("[INFO] scheduler started with spec %q", cronSpec)

	<-ctx.Done()
	<-c.Stop().Done()
	lgr.Printf("[INFO] scheduler stopped")
	return nil
}

// LastStatus returns the status of the most recent completed run, nil before
// the first run finishes.
func (r *Runner) LastStatus() *RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) setLast(s *RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = s
}
