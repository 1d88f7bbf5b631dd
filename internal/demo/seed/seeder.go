// Package seed writes deterministic synthetic transactions to the object
// store so the local warehouse can answer questions without Databricks.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/parquet-go/parquet-go"

	"github.com/finchat/finchat/internal/schema"
	"github.com/finchat/finchat/internal/storage"
)

type Summary struct {
	Table string
	Rows  int
	Files int
}

type Seeder struct {
	cfg       Config
	store     storage.ObjectStore
	registry  *schema.Registry
	log       *slog.Logger
	generator *Generator
}

func NewSeeder(cfg Config, store storage.ObjectStore, registry *schema.Registry, logger *slog.Logger) (*Seeder, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if registry == nil {
		registry = schema.DefaultRegistry()
	}
	if cfg.RowsPerFile <= 0 {
		return nil, fmt.Errorf("rows per file must be > 0")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Seeder{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		log:       logger,
		generator: NewGenerator(cfg.Seed),
	}, nil
}

// Run generates both tables and uploads them as parquet parts.
func (s *Seeder) Run(ctx context.Context) ([]Summary, error) {
	checking, err := s.registry.Lookup(schema.CheckingAccount)
	if err != nil {
		return nil, err
	}
	voucher, err := s.registry.Lookup(schema.MealVoucher)
	if err != nil {
		return nil, err
	}

	var movements []Movement
	var transactions []VoucherTransaction
	for _, month := range Months(s.cfg.StartMonth, s.cfg.Months) {
		movements = append(movements, s.generator.Movements(month, s.cfg.CheckingPerMonth)...)
		transactions = append(transactions, s.generator.VoucherTransactions(month, s.cfg.VoucherPerMonth)...)
	}

	movementSummary, err := writeTable(ctx, s, checking.TableName, movements)
	if err != nil {
		return nil, err
	}
	voucherSummary, err := writeTable(ctx, s, voucher.TableName, transactions)
	if err != nil {
		return nil, err
	}
	return []Summary{movementSummary, voucherSummary}, nil
}

func writeTable[T any](ctx context.Context, s *Seeder, table string, rows []T) (Summary, error) {
	if s.cfg.Replace {
		if err := s.clearTable(ctx, table); err != nil {
			return Summary{}, err
		}
	}

	summary := Summary{Table: table, Rows: len(rows)}
	for start := 0; start < len(rows); start += s.cfg.RowsPerFile {
		end := min(start+s.cfg.RowsPerFile, len(rows))
		key, err := storage.BuildTableFilePath(table, summary.Files)
		if err != nil {
			return Summary{}, err
		}
		var buf bytes.Buffer
		if err := encodeParquet(&buf, rows[start:end]); err != nil {
			return Summary{}, fmt.Errorf("encode %s part %d: %w", table, summary.Files, err)
		}
		size := int64(buf.Len())
		if _, err := s.store.Put(ctx, key, &buf, size, storage.PutOptions{ContentType: storage.ContentTypeParquet}); err != nil {
			return Summary{}, fmt.Errorf("upload %s: %w", key, err)
		}
		summary.Files++
	}

	s.log.InfoContext(ctx, "seeded warehouse table",
		slog.String("table", table),
		slog.Int("rows", summary.Rows),
		slog.Int("files", summary.Files),
	)
	return summary, nil
}

func (s *Seeder) clearTable(ctx context.Context, table string) error {
	prefix, err := storage.TableDataPrefix(table)
	if err != nil {
		return err
	}
	existing, err := s.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	for _, object := range existing {
		if err := s.store.Delete(ctx, object.Key); err != nil {
			return fmt.Errorf("delete %s: %w", object.Key, err)
		}
	}
	return nil
}

func encodeParquet[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		return err
	}
	return writer.Close()
}
