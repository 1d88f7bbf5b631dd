package chart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finchat/finchat/internal/llm"
	"github.com/finchat/finchat/internal/observability"
	"github.com/finchat/finchat/internal/warehouse"
)

const (
	failureModelError     = "model_error"
	failureMarkerNotFound = "marker_not_found"
	failureMalformedJSON  = "malformed_json"
)

type Synthesizer struct {
	Model  llm.Model
	Logger *slog.Logger
}

func NewSynthesizer(model llm.Model, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{Model: model, Logger: logger}
}

// Synthesize never fails the caller. Any problem yields nil, which callers
// render as "no chart".
func (s *Synthesizer) Synthesize(ctx context.Context, rows warehouse.RowSet) *Spec {
	if s.Model == nil {
		s.fail(ctx, failureModelError, errors.New("language model is not configured"))
		return nil
	}
	reply, err := s.Model.Generate(ctx, BuildPrompt(rows))
	if err != nil {
		s.fail(ctx, failureModelError, err)
		return nil
	}
	spec, err := Extract(reply)
	switch {
	case errors.Is(err, ErrMarkerNotFound):
		s.fail(ctx, failureMarkerNotFound, err)
		return nil
	case err != nil:
		s.fail(ctx, failureMalformedJSON, err)
		return nil
	}
	if s.Logger != nil {
		s.Logger.DebugContext(ctx, "chart synthesized",
			observability.TraceAttr(ctx),
			slog.String("type", spec.Type),
			slog.Int("labels", len(spec.Data.Labels)),
		)
	}
	return spec
}

func (s *Synthesizer) fail(ctx context.Context, reason string, err error) {
	observability.IncrementChartSynthesisFailure(reason)
	if s.Logger != nil {
		s.Logger.WarnContext(ctx, "chart synthesis degraded to no chart",
			observability.TraceAttr(ctx),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}

func BuildPrompt(rows warehouse.RowSet) string {
	return fmt.Sprintf(promptTemplate, rows.PromptText())
}
