// Package ensemble executes experiment designs against a model adapter
// with a fixed-size worker pool. Failures are isolated per experiment,
// results are committed to the results store keyed by identity, and the
// only escalation from a single failed experiment to a fatal run abort is
// the consecutive-failure threshold.
package ensemble

import (
	"context"

	"github.com/scenariolab/workbench/internal/results"
	"github.com/scenariolab/workbench/internal/sampling"
)

// ModelAdapter is the single capability the runner needs: run one
// scenario+policy pair and return outcomes or an error. Adapters must be
// safe to invoke repeatedly; adapters shared across workers must be
// reentrant. Adapters wrapping non-reentrant simulators should run out of
// process (see HTTPAdapter) or with Workers set to 1.
type ModelAdapter interface {
	Run(ctx context.Context, scenario, policy sampling.Assignment) (results.Outcome, error)
}

// ModelFunc adapts a plain function to the ModelAdapter interface.
type ModelFunc func(ctx context.Context, scenario, policy sampling.Assignment) (results.Outcome, error)

// Run implements ModelAdapter.
func (f ModelFunc) Run(ctx context.Context, scenario, policy sampling.Assignment) (results.Outcome, error) {
	return f(ctx, scenario, policy)
}
