// Package pipeline strings the question-to-insight stages together.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/finchat/finchat/internal/chart"
	"github.com/finchat/finchat/internal/observability"
	"github.com/finchat/finchat/internal/schema"
	"github.com/finchat/finchat/internal/warehouse"
)

const (
	StageQuery     = "query"
	StageWarehouse = "warehouse"
	StageChart     = "chart"
	StageNarrative = "narrative"
)

type SchemaLookup interface {
	Lookup(accountType schema.AccountType) (schema.Context, error)
}

type QuerySynthesizer interface {
	Synthesize(ctx context.Context, question string, sc schema.Context) (string, error)
}

type ChartSynthesizer interface {
	Synthesize(ctx context.Context, rows warehouse.RowSet) *chart.Spec
}

type NarrativeSynthesizer interface {
	Synthesize(ctx context.Context, question string, sc schema.Context, rows warehouse.RowSet) (string, error)
}

type Timeouts struct {
	Query     time.Duration
	Warehouse time.Duration
	Chart     time.Duration
	Narrative time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Query:     30 * time.Second,
		Warehouse: 60 * time.Second,
		Chart:     30 * time.Second,
		Narrative: 60 * time.Second,
	}
}

type Result struct {
	GeneratedQuery string
	Rows           warehouse.RowSet
	Chart          *chart.Spec
	Narrative      string
}

// StageError names the stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type Orchestrator struct {
	Schemas    SchemaLookup
	Queries    QuerySynthesizer
	Warehouse  warehouse.Executor
	Charts     ChartSynthesizer
	Narratives NarrativeSynthesizer
	Timeouts   Timeouts
	// Parallel runs the chart and narrative stages concurrently.
	Parallel bool
	Logger   *slog.Logger
}

// Run answers one question. The chart stage never fails the run; every other
// stage does.
func (o *Orchestrator) Run(ctx context.Context, question string, accountType schema.AccountType) (result Result, err error) {
	start := time.Now()
	defer func() {
		observability.ObservePipelineRun(string(accountType), err)
		o.logRun(ctx, accountType, start, err)
	}()

	if err := o.validate(); err != nil {
		return Result{}, err
	}
	sc, err := o.Schemas.Lookup(accountType)
	if err != nil {
		return Result{}, err
	}
	timeouts := o.timeouts()

	err = runStage(ctx, StageQuery, timeouts.Query, func(stageCtx context.Context) error {
		var stageErr error
		result.GeneratedQuery, stageErr = o.Queries.Synthesize(stageCtx, question, sc)
		return stageErr
	})
	if err != nil {
		return Result{}, err
	}

	err = runStage(ctx, StageWarehouse, timeouts.Warehouse, func(stageCtx context.Context) error {
		var stageErr error
		result.Rows, stageErr = o.Warehouse.Execute(stageCtx, result.GeneratedQuery)
		return stageErr
	})
	if err != nil {
		return Result{}, err
	}

	chartStage := func(groupCtx context.Context) error {
		_ = runStage(groupCtx, StageChart, timeouts.Chart, func(stageCtx context.Context) error {
			result.Chart = o.Charts.Synthesize(stageCtx, result.Rows)
			return nil
		})
		return nil
	}
	narrativeStage := func(groupCtx context.Context) error {
		return runStage(groupCtx, StageNarrative, timeouts.Narrative, func(stageCtx context.Context) error {
			var stageErr error
			result.Narrative, stageErr = o.Narratives.Synthesize(stageCtx, question, sc, result.Rows)
			return stageErr
		})
	}

	if o.Parallel {
		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error { return chartStage(groupCtx) })
		group.Go(func() error { return narrativeStage(groupCtx) })
		err = group.Wait()
	} else {
		_ = chartStage(ctx)
		err = narrativeStage(ctx)
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (o *Orchestrator) validate() error {
	switch {
	case o.Schemas == nil:
		return fmt.Errorf("schema registry is not configured")
	case o.Queries == nil:
		return fmt.Errorf("query synthesizer is not configured")
	case o.Warehouse == nil:
		return fmt.Errorf("warehouse executor is not configured")
	case o.Charts == nil:
		return fmt.Errorf("chart synthesizer is not configured")
	case o.Narratives == nil:
		return fmt.Errorf("narrative synthesizer is not configured")
	}
	return nil
}

func (o *Orchestrator) timeouts() Timeouts {
	defaults := DefaultTimeouts()
	out := o.Timeouts
	if out.Query <= 0 {
		out.Query = defaults.Query
	}
	if out.Warehouse <= 0 {
		out.Warehouse = defaults.Warehouse
	}
	if out.Chart <= 0 {
		out.Chart = defaults.Chart
	}
	if out.Narrative <= 0 {
		out.Narrative = defaults.Narrative
	}
	return out
}

func (o *Orchestrator) logRun(ctx context.Context, accountType schema.AccountType, start time.Time, err error) {
	if o.Logger == nil {
		return
	}
	attrs := []any{
		observability.TraceAttr(ctx),
		slog.String("account_type", string(accountType)),
		slog.String("duration", time.Since(start).String()),
	}
	if err != nil {
		o.Logger.ErrorContext(ctx, "pipeline failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	o.Logger.InfoContext(ctx, "pipeline completed", attrs...)
}

func runStage(ctx context.Context, stage string, timeout time.Duration, fn func(context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(stageCtx)
	observability.ObservePipelineStage(stage, time.Since(start), err)
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}
