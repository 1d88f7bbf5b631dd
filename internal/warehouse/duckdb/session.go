// Package duckdb serves the warehouse tables locally from parquet files kept
// in the object store. Table names keep their catalog.schema.table shape so
// generated SQL runs unchanged.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	duckdbdriver "github.com/marcboeker/go-duckdb/v2"
	"github.com/shopspring/decimal"

	"github.com/finchat/finchat/internal/schema"
	"github.com/finchat/finchat/internal/storage"
	"github.com/finchat/finchat/internal/warehouse"
)

// compatMacros map Databricks SQL functions the prompts ask for onto DuckDB.
var compatMacros = []string{
	`CREATE OR REPLACE MACRO date_format(d, fmt) AS strftime(CAST(d AS TIMESTAMP), replace(replace(replace(fmt, 'yyyy', '%Y'), 'MM', '%m'), 'dd', '%d'))`,
}

type Column struct {
	Name string
	Type string
}

type Table struct {
	Name    string
	Columns []Column
}

// TablesFromRegistry declares one table per registered context with the
// column types the context promises.
func TablesFromRegistry(registry *schema.Registry) []Table {
	contexts := registry.Contexts()
	tables := make([]Table, 0, len(contexts))
	for _, sc := range contexts {
		table := Table{Name: sc.TableName}
		for _, column := range sc.Columns {
			table.Columns = append(table.Columns, Column{Name: column.Name, Type: duckType(column.Type)})
		}
		tables = append(tables, table)
	}
	return tables
}

type SessionFactory struct {
	Store  storage.ObjectStore
	Tables []Table
	Logger *slog.Logger
}

func NewSessionFactory(store storage.ObjectStore, logger *slog.Logger, tables ...Table) *SessionFactory {
	return &SessionFactory{Store: store, Tables: tables, Logger: logger}
}

// OpenSession downloads the current parquet parts into a scratch directory
// and exposes each table as a view. Closing the session removes both.
func (f *SessionFactory) OpenSession(ctx context.Context) (warehouse.Session, error) {
	if f.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	workDir, err := os.MkdirTemp("", "finchat-warehouse-")
	if err != nil {
		return nil, fmt.Errorf("create warehouse temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	localPaths, err := f.download(ctx, workDir)
	if err != nil {
		cleanup()
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := f.prepare(ctx, db, localPaths); err != nil {
		_ = db.Close()
		cleanup()
		return nil, err
	}
	return &session{DB: db, workDir: workDir}, nil
}

func (f *SessionFactory) download(ctx context.Context, workDir string) (map[string][]string, error) {
	localPaths := make(map[string][]string, len(f.Tables))
	for _, table := range f.Tables {
		prefix, err := storage.TableDataPrefix(table.Name)
		if err != nil {
			return nil, err
		}
		objects, err := f.Store.List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("list parquet files for %q: %w", table.Name, err)
		}
		for index, object := range objects {
			if !strings.HasSuffix(object.Key, ".parquet") {
				continue
			}
			reader, err := f.Store.Get(ctx, object.Key)
			if err != nil {
				return nil, fmt.Errorf("get object %q: %w", object.Key, err)
			}
			localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(table.Name), index))
			if err := writeFile(localPath, reader); err != nil {
				_ = reader.Close()
				return nil, fmt.Errorf("write local parquet file %q: %w", localPath, err)
			}
			if err := reader.Close(); err != nil {
				return nil, fmt.Errorf("close object %q: %w", object.Key, err)
			}
			localPaths[table.Name] = append(localPaths[table.Name], localPath)
		}
	}
	return localPaths, nil
}

func (f *SessionFactory) prepare(ctx context.Context, db *sql.DB, localPaths map[string][]string) error {
	for _, macro := range compatMacros {
		if _, err := db.ExecContext(ctx, macro); err != nil && f.Logger != nil {
			f.Logger.WarnContext(ctx, "duckdb compat macro skipped", slog.String("error", err.Error()))
		}
	}

	attached := map[string]bool{}
	for _, table := range f.Tables {
		paths := localPaths[table.Name]
		if len(paths) == 0 {
			if f.Logger != nil {
				f.Logger.WarnContext(ctx, "no parquet files for table", slog.String("table", table.Name))
			}
			continue
		}
		parts := strings.Split(table.Name, ".")
		if len(parts) > 3 {
			return fmt.Errorf("invalid table name %q", table.Name)
		}
		if len(parts) == 3 && !attached[parts[0]] {
			if _, err := db.ExecContext(ctx, fmt.Sprintf(`ATTACH ':memory:' AS %s`, quoteIdent(parts[0]))); err != nil {
				return fmt.Errorf("attach catalog %q: %w", parts[0], err)
			}
			attached[parts[0]] = true
		}
		if len(parts) > 1 {
			schemaName := quoteQualified(parts[:len(parts)-1])
			if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schemaName)); err != nil {
				return fmt.Errorf("create schema for table %q: %w", table.Name, err)
			}
		}
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT %s FROM read_parquet(%s)`,
			quoteQualified(parts), selectList(table.Columns), quoteStringArray(paths))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return fmt.Errorf("create view for table %q: %w", table.Name, err)
		}
	}
	return nil
}

// NormalizeDecimal turns DuckDB DECIMAL results into float64.
func NormalizeDecimal(value any) (any, bool) {
	switch typed := value.(type) {
	case duckdbdriver.Decimal:
		return decimalFloat(typed), true
	case *duckdbdriver.Decimal:
		if typed == nil {
			return nil, true
		}
		return decimalFloat(*typed), true
	default:
		return nil, false
	}
}

func decimalFloat(value duckdbdriver.Decimal) float64 {
	if value.Value == nil {
		return 0
	}
	return decimal.NewFromBigInt(value.Value, -int32(value.Scale)).InexactFloat64()
}

type session struct {
	*sql.DB
	workDir string
}

func (s *session) Close() error {
	err := s.DB.Close()
	_ = os.RemoveAll(s.workDir)
	return err
}

func selectList(columns []Column) string {
	if len(columns) == 0 {
		return "*"
	}
	items := make([]string, 0, len(columns))
	for _, column := range columns {
		name := quoteIdent(column.Name)
		if column.Type == "" {
			items = append(items, name)
			continue
		}
		items = append(items, fmt.Sprintf("CAST(%s AS %s) AS %s", name, column.Type, name))
	}
	return strings.Join(items, ", ")
}

func duckType(declared string) string {
	switch strings.ToUpper(strings.TrimSpace(declared)) {
	case "TEXT", "STRING", "VARCHAR":
		return "VARCHAR"
	case "INT", "INTEGER":
		return "INTEGER"
	case "BIGINT", "LONG":
		return "BIGINT"
	case "DOUBLE", "FLOAT":
		return "DOUBLE"
	case "DECIMAL", "NUMERIC":
		return "DECIMAL(18,2)"
	case "DATE":
		return "DATE"
	case "TIMESTAMP":
		return "TIMESTAMP"
	default:
		return ""
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteQualified(parts []string) string {
	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		quoted = append(quoted, quoteIdent(part))
	}
	return strings.Join(quoted, ".")
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
