// Package warehouse runs generated SQL against the analytical warehouse.
package warehouse

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Row maps a column name to a scalar value.
type Row map[string]any

// RowSet keeps the select-list order alongside the rows.
type RowSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func (r RowSet) Len() int {
	return len(r.Rows)
}

// MarshalJSON writes rows as objects whose keys follow Columns.
func (r RowSet) MarshalJSON() ([]byte, error) {
	columns := r.Columns
	if columns == nil {
		columns = []string{}
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return nil, err
	}
	rowsJSON, err := r.rowsJSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"columns":`)
	buf.Write(columnsJSON)
	buf.WriteString(`,"rows":`)
	buf.Write(rowsJSON)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PromptText renders the rows as a JSON array for model prompts.
func (r RowSet) PromptText() string {
	raw, err := r.rowsJSON()
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func (r RowSet) rowsJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range r.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeOrderedRow(&buf, r.Columns, row); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeOrderedRow(buf *bytes.Buffer, columns []string, row Row) error {
	buf.WriteByte('{')
	written := 0
	seen := make(map[string]struct{}, len(columns))
	for _, column := range columns {
		if _, dup := seen[column]; dup {
			continue
		}
		seen[column] = struct{}{}
		value, ok := row[column]
		if !ok {
			continue
		}
		if err := writeField(buf, written, column, value); err != nil {
			return err
		}
		written++
	}
	buf.WriteByte('}')
	return nil
}

func writeField(buf *bytes.Buffer, index int, key string, value any) error {
	if index > 0 {
		buf.WriteByte(',')
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return err
	}
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode column %q: %w", key, err)
	}
	buf.Write(keyJSON)
	buf.WriteByte(':')
	buf.Write(valueJSON)
	return nil
}

type Executor interface {
	Execute(ctx context.Context, sql string) (RowSet, error)
}

// Session is one warehouse connection. *sql.DB satisfies it.
type Session interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

type SessionFactory interface {
	OpenSession(ctx context.Context) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context) (Session, error)

func (f SessionFactoryFunc) OpenSession(ctx context.Context) (Session, error) {
	return f(ctx)
}
