package seed

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Movement is one row of the checking account table.
type Movement struct {
	ID               int64   `parquet:"id"`
	TipoMovimentacao string  `parquet:"tipo_movimentacao"`
	MeioDePagamento  string  `parquet:"meio_de_pagamento"`
	Categoria        string  `parquet:"categoria"`
	Motivo           string  `parquet:"motivo"`
	Valor            float64 `parquet:"valor"`
	Data             string  `parquet:"data"`
}

// VoucherTransaction is one row of the meal voucher table.
type VoucherTransaction struct {
	ID                       int32   `parquet:"id"`
	CategoriaEstabelecimento string  `parquet:"categoria_estabelecimento"`
	ValorTransacao           float64 `parquet:"valor_transacao"`
	DataTransacao            string  `parquet:"data_transacao"`
	NomeEstabelecimento      string  `parquet:"nome_estabelecimento"`
}

const dateLayout = "2006-01-02"

type movementKind struct {
	tipo      string
	meio      []string
	categoria string
	motivos   []string
	min, max  float64
}

var (
	salaryKind = movementKind{
		tipo: "Entrada", meio: []string{"PIX"}, categoria: "Salario",
		motivos: []string{"Salário mensal"}, min: 6500, max: 6500,
	}
	movementKinds = []movementKind{
		{tipo: "Saída", meio: []string{"Boleto (Débito Conta)"}, categoria: "Contas Fixas", motivos: []string{"Aluguel", "Energia elétrica", "Internet", "Condomínio", "Água"}, min: 90, max: 1800},
		{tipo: "Saída", meio: []string{"Fatura Cartão de Crédito"}, categoria: "Cartão de Crédito", motivos: []string{"Pagamento fatura"}, min: 800, max: 2600},
		{tipo: "Transferência para Investimentos", meio: []string{"PIX"}, categoria: "Investimento", motivos: []string{"Aporte CDB", "Aporte Tesouro Direto", "Aporte fundo imobiliário"}, min: 200, max: 1500},
		{tipo: "Saída", meio: []string{"Compra no Débito", "PIX", "Outros"}, categoria: "Outros", motivos: []string{"Farmácia", "Padaria", "Presente", "Transporte", "Academia", "Streaming"}, min: 12, max: 350},
		{tipo: "Entrada", meio: []string{"PIX"}, categoria: "Outros", motivos: []string{"Reembolso", "Venda de item usado", "Transferência recebida"}, min: 30, max: 600},
	}
	voucherEstablishments = map[string][]string{
		"Mercados":             {"Supermercado Pão de Açúcar", "Carrefour", "Assaí Atacadista", "Hortifruti"},
		"Farmácias":            {"Drogasil", "Droga Raia", "Pague Menos"},
		"Posto de Combustivel": {"Posto Ipiranga", "Posto Shell"},
		"Restaurantes":         {"Restaurante Sabor Caseiro", "Outback", "Padaria Real", "iFood"},
		"Outros":               {"Loja de Conveniência", "Feira Livre"},
	}
	voucherCategories = []string{"Mercados", "Farmácias", "Posto de Combustivel", "Restaurantes", "Outros"}
)

type Generator struct {
	rnd            *rand.Rand
	movementSeq    int64
	transactionSeq int32
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Movements returns count rows dated within month. The first row of every
// month is the salary credit.
func (g *Generator) Movements(month time.Time, count int) []Movement {
	out := make([]Movement, 0, count)
	for i := 0; i < count; i++ {
		kind := salaryKind
		day := 5
		if i > 0 {
			kind = movementKinds[g.pickWeighted([]int{20, 8, 10, 50, 12})]
			day = g.rnd.Intn(daysIn(month)) + 1
		}
		g.movementSeq++
		out = append(out, Movement{
			ID:               g.movementSeq,
			TipoMovimentacao: kind.tipo,
			MeioDePagamento:  pickOne(g.rnd, kind.meio),
			Categoria:        kind.categoria,
			Motivo:           pickOne(g.rnd, kind.motivos),
			Valor:            g.amount(kind.min, kind.max),
			Data:             dateIn(month, day),
		})
	}
	return out
}

func (g *Generator) VoucherTransactions(month time.Time, count int) []VoucherTransaction {
	out := make([]VoucherTransaction, 0, count)
	for i := 0; i < count; i++ {
		category := voucherCategories[g.pickWeighted([]int{45, 10, 10, 30, 5})]
		g.transactionSeq++
		out = append(out, VoucherTransaction{
			ID:                       g.transactionSeq,
			CategoriaEstabelecimento: category,
			ValorTransacao:           g.voucherAmount(category),
			DataTransacao:            dateIn(month, g.rnd.Intn(daysIn(month))+1),
			NomeEstabelecimento:      pickOne(g.rnd, voucherEstablishments[category]),
		})
	}
	return out
}

func (g *Generator) voucherAmount(category string) float64 {
	switch category {
	case "Mercados":
		return g.amount(25, 480)
	case "Restaurantes":
		return g.amount(18, 160)
	case "Posto de Combustivel":
		return g.amount(80, 300)
	default:
		return g.amount(8, 120)
	}
}

// amount draws a value in [min, max] rounded to cents.
func (g *Generator) amount(min, max float64) float64 {
	raw := decimal.NewFromFloat(min + g.rnd.Float64()*(max-min))
	return raw.Round(2).InexactFloat64()
}

func (g *Generator) pickWeighted(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	p := g.rnd.Intn(total)
	for i, w := range weights {
		if p < w {
			return i
		}
		p -= w
	}
	return len(weights) - 1
}

// Months lists count month starts beginning at start.
func Months(start time.Time, count int) []time.Time {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, first.AddDate(0, i, 0))
	}
	return out
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateIn(month time.Time, day int) string {
	return time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
