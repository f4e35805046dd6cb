package ensemble

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/scenariolab/workbench/internal/design"
	"github.com/scenariolab/workbench/internal/results"
)

// Config holds the runner's recognised options.
type Config struct {
	// Workers is the pool size W. Values below 1 default to the number
	// of available execution units.
	Workers int
	// MaxConsecutiveFailures aborts the whole run once this many
	// experiments fail back to back. 0 disables the threshold.
	MaxConsecutiveFailures int
	// GraceTimeout bounds how long in-flight experiments may keep
	// running after cancellation before they are abandoned. 0 waits for
	// them indefinitely.
	GraceTimeout time.Duration
}

// Stats reports how the run ended. Cancelled counts experiments that
// never produced a committed row.
type Stats struct {
	Completed int
	Failed    int
	Cancelled int
}

// TooManyFailuresError is the run-fatal error raised when the
// consecutive-failure threshold is crossed. Partial results remain in the
// store.
type TooManyFailuresError struct {
	Threshold int
}

func (e *TooManyFailuresError) Error() string {
	return fmt.Sprintf("aborted after %d consecutive experiment failures", e.Threshold)
}

// Runner drives an experiment sequence through the adapter. Configure
// once, then call Run; the zero Config is usable.
type Runner struct {
	Adapter  ModelAdapter
	Config   Config
	Progress func(ProgressEvent)
}

type taskResult struct {
	exp design.Experiment
	out results.Outcome
	err error
}

// Run executes every experiment and commits one row per identity into the
// store. Dispatch follows identity order; completion order is free; the
// store re-keys by identity either way. The returned error is nil for a
// clean run, the context error for a cancelled one, and a fatal error
// (threshold crossed, store invariant violated) for an aborted one. In
// every case the stats and the store reflect all committed work.
func (r *Runner) Run(ctx context.Context, experiments []design.Experiment, store *results.Store) (Stats, error) {
	var stats Stats
	if r.Adapter == nil {
		return stats, errors.New("ensemble: no model adapter configured")
	}
	total := len(experiments)
	if total == 0 {
		return stats, nil
	}
	workers := r.Config.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan design.Experiment)
	// Buffered to the full design so abandoned workers can always flush
	// their last result and exit instead of blocking forever.
	resCh := make(chan taskResult, total)

	go func() {
		defer close(tasks)
		for _, e := range experiments {
			select {
			case tasks <- e:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range tasks {
				out, err := r.runOne(runCtx, e)
				resCh <- taskResult{exp: e, out: out, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resCh)
	}()

	var (
		fatal       error
		consecutive int
		cancelled   bool
		graceC      <-chan time.Time
		ctxDone     = ctx.Done()
	)

collect:
	for {
		select {
		case tr, ok := <-resCh:
			if !ok {
				break collect
			}
			if cancelled && tr.err != nil && errors.Is(tr.err, context.Canceled) {
				// in-flight experiment gave up on cancellation; it never
				// resolved, so it counts as cancelled, not failed
				continue
			}
			if tr.err != nil {
				if err := store.AddFailure(tr.exp, tr.err.Error()); err != nil {
					fatal = err
					cancel()
					break collect
				}
				stats.Failed++
				consecutive++
				r.emit(tr.exp.ID, StatusFailure, stats, total)
				if r.Config.MaxConsecutiveFailures > 0 && consecutive >= r.Config.MaxConsecutiveFailures {
					fatal = &TooManyFailuresError{Threshold: r.Config.MaxConsecutiveFailures}
					cancel()
					break collect
				}
				continue
			}
			if err := store.AddSuccess(tr.exp, tr.out); err != nil {
				fatal = err
				cancel()
				break collect
			}
			stats.Completed++
			consecutive = 0
			r.emit(tr.exp.ID, StatusSuccess, stats, total)

		case <-ctxDone:
			// stop dispatching, let in-flight work finish within the
			// grace period
			cancelled = true
			ctxDone = nil
			if r.Config.GraceTimeout > 0 {
				graceC = time.After(r.Config.GraceTimeout)
			}

		case <-graceC:
			break collect
		}
	}

	stats.Cancelled = total - stats.Completed - stats.Failed
	if r.Progress != nil {
		for _, e := range experiments {
			if _, ok := store.Get(e.ID); !ok {
				r.emit(e.ID, StatusCancelled, stats, total)
			}
		}
	}

	if fatal != nil {
		return stats, fatal
	}
	if cancelled {
		return stats, ctx.Err()
	}
	return stats, nil
}

// runOne is the failure isolation boundary: any error or panic inside the
// adapter resolves this one experiment and nothing else.
func (r *Runner) runOne(ctx context.Context, e design.Experiment) (out results.Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("model adapter panicked: %v", p)
		}
	}()
	out, err = r.Adapter.Run(ctx, e.Scenario, e.Policy)
	if err != nil {
		return nil, fmt.Errorf("experiment %d: %w", e.ID, err)
	}
	if out == nil {
		out = results.Outcome{}
	}
	return out, nil
}

func (r *Runner) emit(id int64, status Status, stats Stats, total int) {
	if r.Progress == nil {
		return
	}
	r.Progress(ProgressEvent{
		ExperimentID: id,
		Status:       status,
		Completed:    stats.Completed,
		Failed:       stats.Failed,
		Cancelled:    stats.Cancelled,
		Total:        total,
	})
}
