package duckdb

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"os"
	"sort"
	"strings"
	"testing"

	duckdbdriver "github.com/marcboeker/go-duckdb/v2"
	"github.com/parquet-go/parquet-go"

	"github.com/finchat/finchat/internal/schema"
	"github.com/finchat/finchat/internal/storage"
	"github.com/finchat/finchat/internal/warehouse"
)

type movementRow struct {
	ID               int64   `parquet:"id"`
	TipoMovimentacao string  `parquet:"tipo_movimentacao"`
	MeioDePagamento  string  `parquet:"meio_de_pagamento"`
	Categoria        string  `parquet:"categoria"`
	Motivo           string  `parquet:"motivo"`
	Valor            float64 `parquet:"valor"`
	Data             string  `parquet:"data"`
}

type voucherRow struct {
	ID                       int32   `parquet:"id"`
	CategoriaEstabelecimento string  `parquet:"categoria_estabelecimento"`
	ValorTransacao           float64 `parquet:"valor_transacao"`
	DataTransacao            string  `parquet:"data_transacao"`
	NomeEstabelecimento      string  `parquet:"nome_estabelecimento"`
}

func TestSessionServesQualifiedTableNames(t *testing.T) {
	store := newMemoryStore()
	store.putParquet(t, "workspace.db_work_databricks.prata_cc", 0, []movementRow{
		{ID: 1, TipoMovimentacao: "Saída", MeioDePagamento: "PIX", Categoria: "Outros", Motivo: "mercado", Valor: 200.10, Data: "2025-04-03"},
		{ID: 2, TipoMovimentacao: "Saída", MeioDePagamento: "Compra no Débito", Categoria: "Outros", Motivo: "farmacia", Valor: 332.00, Data: "2025-04-20"},
		{ID: 3, TipoMovimentacao: "Entrada", MeioDePagamento: "PIX", Categoria: "Salario", Motivo: "salario", Valor: 5000, Data: "2025-04-05"},
	})

	factory := NewSessionFactory(store, nil, TablesFromRegistry(schema.DefaultRegistry())...)
	executor := warehouse.NewSQLExecutor(factory, nil, NormalizeDecimal)

	result, err := executor.Execute(context.Background(),
		"SELECT COUNT(*) AS c, MIN(data) AS primeira FROM workspace.db_work_databricks.prata_cc WHERE tipo_movimentacao = 'Saída';")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Len() != 1 {
		t.Fatalf("rows = %d", result.Len())
	}
	if result.Rows[0]["c"] != int64(2) {
		t.Fatalf("c = %#v", result.Rows[0]["c"])
	}
	if result.Rows[0]["primeira"] != "2025-04-03" {
		t.Fatalf("primeira = %#v", result.Rows[0]["primeira"])
	}
}

func TestSessionCastsDeclaredDecimalColumns(t *testing.T) {
	store := newMemoryStore()
	store.putParquet(t, "view_vale_alimentacao", 0, []voucherRow{
		{ID: 1, CategoriaEstabelecimento: "Mercados", ValorTransacao: 10.50, DataTransacao: "2025-04-01", NomeEstabelecimento: "Mercado Bom Preço"},
	})
	store.putParquet(t, "view_vale_alimentacao", 1, []voucherRow{
		{ID: 2, CategoriaEstabelecimento: "Mercados", ValorTransacao: 20.25, DataTransacao: "2025-04-02", NomeEstabelecimento: "Supermercado Central"},
	})

	factory := NewSessionFactory(store, nil, TablesFromRegistry(schema.DefaultRegistry())...)
	executor := warehouse.NewSQLExecutor(factory, nil, NormalizeDecimal)

	result, err := executor.Execute(context.Background(),
		"SELECT categoria_estabelecimento, SUM(valor_transacao) AS total FROM view_vale_alimentacao GROUP BY categoria_estabelecimento")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Len() != 1 {
		t.Fatalf("rows = %d", result.Len())
	}
	if result.Rows[0]["total"] != 30.75 {
		t.Fatalf("total = %#v", result.Rows[0]["total"])
	}
}

func TestSessionCloseRemovesWorkDir(t *testing.T) {
	store := newMemoryStore()
	store.putParquet(t, "events", 0, []voucherRow{{ID: 1, DataTransacao: "2025-01-01"}})

	factory := NewSessionFactory(store, nil, Table{Name: "events"})
	opened, err := factory.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	workDir := opened.(*session).workDir
	if _, err := os.Stat(workDir); err != nil {
		t.Fatalf("work dir missing while open: %v", err)
	}
	if err := opened.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("work dir still present after Close: %v", err)
	}
}

func TestOpenSessionRequiresStore(t *testing.T) {
	if _, err := (&SessionFactory{}).OpenSession(context.Background()); err == nil {
		t.Fatal("expected missing store error")
	}
}

func TestNormalizeDecimal(t *testing.T) {
	value, ok := NormalizeDecimal(duckdbdriver.Decimal{Width: 10, Scale: 2, Value: big.NewInt(53210)})
	if !ok || value != 532.1 {
		t.Fatalf("NormalizeDecimal() = %#v, %v", value, ok)
	}
	if _, ok := NormalizeDecimal("532.10"); ok {
		t.Fatal("NormalizeDecimal() claimed a string")
	}
}

func TestTablesFromRegistryMapsColumnTypes(t *testing.T) {
	tables := TablesFromRegistry(schema.DefaultRegistry())
	if len(tables) != 2 {
		t.Fatalf("len(tables) = %d", len(tables))
	}
	byName := map[string]Table{}
	for _, table := range tables {
		byName[table.Name] = table
	}
	voucher := byName["view_vale_alimentacao"]
	if got := selectList(voucher.Columns); !strings.Contains(got, `CAST("valor_transacao" AS DECIMAL(18,2)) AS "valor_transacao"`) {
		t.Fatalf("selectList() = %s", got)
	}
	if got := quoteQualified(strings.Split("workspace.db_work_databricks.prata_cc", ".")); got != `"workspace"."db_work_databricks"."prata_cc"` {
		t.Fatalf("quoteQualified() = %s", got)
	}
}

type memoryStore struct {
	objects map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) putParquet(t *testing.T, table string, sequence int, rows any) {
	t.Helper()
	key, err := storage.BuildTableFilePath(table, sequence)
	if err != nil {
		t.Fatalf("BuildTableFilePath() error = %v", err)
	}
	buf := bytes.NewBuffer(nil)
	switch typed := rows.(type) {
	case []movementRow:
		err = writeRows(buf, typed)
	case []voucherRow:
		err = writeRows(buf, typed)
	default:
		t.Fatalf("unsupported rows %T", rows)
	}
	if err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	m.objects[key] = buf.Bytes()
}

func writeRows[T any](buf *bytes.Buffer, rows []T) error {
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return err
	}
	return writer.Close()
}

func (m *memoryStore) Put(context.Context, string, io.Reader, int64, storage.PutOptions) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	out := make([]storage.ObjectInfo, 0)
	for key, raw := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(raw))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}
