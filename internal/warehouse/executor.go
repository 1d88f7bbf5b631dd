package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finchat/finchat/internal/observability"
)

// ValueNormalizer converts a driver specific value. It reports false when the
// value is not one it handles.
type ValueNormalizer func(value any) (any, bool)

// SQLExecutor opens one session per statement and always releases it.
type SQLExecutor struct {
	Sessions    SessionFactory
	Normalizers []ValueNormalizer
	Logger      *slog.Logger
}

func NewSQLExecutor(sessions SessionFactory, logger *slog.Logger, normalizers ...ValueNormalizer) *SQLExecutor {
	return &SQLExecutor{Sessions: sessions, Normalizers: normalizers, Logger: logger}
}

func (e *SQLExecutor) Execute(ctx context.Context, sqlText string) (RowSet, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return RowSet{}, fmt.Errorf("sql is required")
	}
	if e.Sessions == nil {
		return RowSet{}, fmt.Errorf("warehouse session factory is not configured")
	}

	start := time.Now()
	session, err := e.Sessions.OpenSession(ctx)
	if err != nil {
		return RowSet{}, fmt.Errorf("open warehouse session: %w", err)
	}
	defer func() { _ = session.Close() }()

	rows, err := session.QueryContext(ctx, sqlText)
	if err != nil {
		return RowSet{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := e.scan(rows)
	if err != nil {
		return RowSet{}, err
	}

	observability.ObserveWarehouseRows(result.Len())
	if e.Logger != nil {
		e.Logger.InfoContext(ctx, "warehouse query executed",
			observability.TraceAttr(ctx),
			slog.Int("rows", result.Len()),
			slog.String("duration", time.Since(start).String()),
		)
	}
	return result, nil
}

func (e *SQLExecutor) scan(rows *sql.Rows) (RowSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return RowSet{}, fmt.Errorf("query columns: %w", err)
	}
	decimalColumns := make([]bool, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, columnType := range types {
			decimalColumns[i] = isDecimalType(columnType.DatabaseTypeName())
		}
	}

	result := RowSet{Columns: columns, Rows: make([]Row, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return RowSet{}, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = e.normalize(values[i], decimalColumns[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return RowSet{}, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func (e *SQLExecutor) normalize(value any, decimalColumn bool) any {
	for _, normalizer := range e.Normalizers {
		if normalized, ok := normalizer(value); ok {
			return normalized
		}
	}
	switch typed := value.(type) {
	case []byte:
		if decimalColumn {
			return decimalOrString(string(typed))
		}
		return string(typed)
	case string:
		if decimalColumn {
			return decimalOrString(typed)
		}
		return typed
	case decimal.Decimal:
		return typed.InexactFloat64()
	case time.Time:
		return formatTime(typed)
	default:
		return typed
	}
}

func decimalOrString(raw string) any {
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return parsed.InexactFloat64()
}

// formatTime renders DATE values as yyyy-MM-dd and everything else as RFC 3339.
func formatTime(value time.Time) string {
	if value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0 {
		return value.Format("2006-01-02")
	}
	return value.Format(time.RFC3339Nano)
}

func isDecimalType(name string) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.HasPrefix(name, "DECIMAL") || strings.HasPrefix(name, "NUMERIC")
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
