// Package nl2sql turns a question about one account type into a single
// Spark SQL SELECT statement.
package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/finchat/finchat/internal/llm"
	"github.com/finchat/finchat/internal/observability"
	"github.com/finchat/finchat/internal/schema"
)

type Synthesizer struct {
	Model  llm.Model
	Logger *slog.Logger
}

func NewSynthesizer(model llm.Model, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{Model: model, Logger: logger}
}

// Synthesize asks the model once. The statement is not validated here; a bad
// query surfaces when the warehouse rejects it.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, sc schema.Context) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is required")
	}
	if s.Model == nil {
		return "", fmt.Errorf("language model is not configured")
	}
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "synthesizing sql",
			observability.TraceAttr(ctx),
			slog.String("account_type", string(sc.AccountType)),
			slog.String("table", sc.TableName),
		)
	}

	reply, err := s.Model.Generate(ctx, BuildPrompt(question, sc))
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	sql := StripMarkdownSQL(reply)
	if sql == "" {
		return "", fmt.Errorf("model returned empty SQL")
	}
	if s.Logger != nil {
		s.Logger.DebugContext(ctx, "sql synthesized",
			observability.TraceAttr(ctx),
			slog.String("sql", sql),
		)
	}
	return sql, nil
}

// StripMarkdownSQL removes every sql fence marker, wherever the model put it.
func StripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.ReplaceAll(trimmed, "```sql", "")
	trimmed = strings.ReplaceAll(trimmed, "```", "")
	return strings.TrimSpace(trimmed)
}
