// Package schema holds the table descriptions that ground every prompt.
//
// The context texts under contexts/ are injected verbatim into model prompts.
// Edit them as versioned assets: a wording change changes generated SQL.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
)

//go:embed contexts/*.txt
var contextFS embed.FS

type AccountType string

const (
	CheckingAccount AccountType = "conta-corrente"
	MealVoucher     AccountType = "vale-alimentacao"
	CreditCard      AccountType = "cartao-credito"
)

var (
	// ErrInvalidAccountType marks a selector outside the declared set.
	ErrInvalidAccountType = errors.New("invalid account type")
	// ErrUnsupportedAccountType marks a declared selector without a backing table.
	ErrUnsupportedAccountType = errors.New("account type is not supported")
)

var declaredAccountTypes = []AccountType{CheckingAccount, MealVoucher, CreditCard}

func ParseAccountType(raw string) (AccountType, error) {
	candidate := AccountType(strings.ToLower(strings.TrimSpace(raw)))
	for _, declared := range declaredAccountTypes {
		if candidate == declared {
			return declared, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, raw)
}

type Column struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Semantics string `json:"semantics"`
}

type Context struct {
	AccountType AccountType `json:"account_type"`
	TableName   string      `json:"table_name"`
	Description string      `json:"description"`
	Columns     []Column    `json:"columns"`
	text        string
}

// Prompt returns the authored context text exactly as it is sent to the model.
func (c Context) Prompt() string {
	return c.text
}

func (c Context) ColumnNames() []string {
	names := make([]string, 0, len(c.Columns))
	for _, column := range c.Columns {
		names = append(names, column.Name)
	}
	return names
}

type Registry struct {
	contexts map[AccountType]Context
}

func NewRegistry(contexts ...Context) (*Registry, error) {
	registry := &Registry{contexts: make(map[AccountType]Context, len(contexts))}
	for _, sc := range contexts {
		if _, err := ParseAccountType(string(sc.AccountType)); err != nil {
			return nil, err
		}
		if strings.TrimSpace(sc.TableName) == "" {
			return nil, fmt.Errorf("table name is required for %q", sc.AccountType)
		}
		if strings.TrimSpace(sc.text) == "" {
			return nil, fmt.Errorf("context text is required for %q", sc.AccountType)
		}
		if _, exists := registry.contexts[sc.AccountType]; exists {
			return nil, fmt.Errorf("duplicate context for %q", sc.AccountType)
		}
		sc.Columns = append([]Column(nil), sc.Columns...)
		registry.contexts[sc.AccountType] = sc
	}
	return registry, nil
}

// DefaultRegistry returns the contexts for every supported account type.
// CreditCard is declared but intentionally absent.
func DefaultRegistry() *Registry {
	registry, err := NewRegistry(checkingAccountContext(), mealVoucherContext())
	if err != nil {
		panic(fmt.Sprintf("schema: default registry: %v", err))
	}
	return registry
}

func (r *Registry) Lookup(accountType AccountType) (Context, error) {
	if _, err := ParseAccountType(string(accountType)); err != nil {
		return Context{}, err
	}
	sc, ok := r.contexts[accountType]
	if !ok {
		return Context{}, fmt.Errorf("%w: %q", ErrUnsupportedAccountType, accountType)
	}
	return sc, nil
}

// AccountTypes lists every declared selector in declaration order.
func (r *Registry) AccountTypes() []AccountType {
	return append([]AccountType(nil), declaredAccountTypes...)
}

func (r *Registry) Supports(accountType AccountType) bool {
	_, ok := r.contexts[accountType]
	return ok
}

// Contexts returns the registered contexts sorted by table name.
func (r *Registry) Contexts() []Context {
	out := make([]Context, 0, len(r.contexts))
	for _, sc := range r.contexts {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableName < out[j].TableName })
	return out
}

func checkingAccountContext() Context {
	return Context{
		AccountType: CheckingAccount,
		TableName:   "workspace.db_work_databricks.prata_cc",
		Description: "Operações financeiras da conta corrente, uma linha por movimento.",
		Columns: []Column{
			{Name: "id", Type: "BIGINT", Semantics: "identificador primário"},
			{Name: "tipo_movimentacao", Type: "TEXT", Semantics: "Entrada, Saída ou Transferência para Investimentos"},
			{Name: "meio_de_pagamento", Type: "TEXT", Semantics: "Fatura Cartão de Crédito, Boleto (Débito Conta), Compra no Débito, PIX ou Outros"},
			{Name: "categoria", Type: "TEXT", Semantics: "Investimento, Salario, Contas Fixas, Cartão de Crédito ou Outros"},
			{Name: "motivo", Type: "TEXT", Semantics: "motivo do movimento"},
			{Name: "valor", Type: "DOUBLE", Semantics: "valor financeiro do movimento"},
			{Name: "data", Type: "DATE", Semantics: "data do movimento, AAAA-MM-DD"},
		},
		text: mustReadContext("conta-corrente.txt"),
	}
}

func mealVoucherContext() Context {
	return Context{
		AccountType: MealVoucher,
		TableName:   "view_vale_alimentacao",
		Description: "Transações do cartão de vale-alimentação.",
		Columns: []Column{
			{Name: "id", Type: "INT", Semantics: "identificador único da transação"},
			{Name: "categoria_estabelecimento", Type: "TEXT", Semantics: "Mercados, Farmácias, Posto de Combustivel, Restaurantes ou Outros"},
			{Name: "valor_transacao", Type: "DECIMAL", Semantics: "valor da transação"},
			{Name: "data_transacao", Type: "DATE", Semantics: "data da transação, AAAA-MM-DD"},
			{Name: "nome_estabelecimento", Type: "TEXT", Semantics: "nome do estabelecimento"},
		},
		text: mustReadContext("vale-alimentacao.txt"),
	}
}

func mustReadContext(name string) string {
	raw, err := contextFS.ReadFile("contexts/" + name)
	if err != nil {
		panic(fmt.Sprintf("schema: read context %q: %v", name, err))
	}
	return strings.TrimSpace(string(raw))
}

// NewContext builds a context from explicit text. It exists for tests and
// alternative deployments; the default registry uses the embedded assets.
func NewContext(accountType AccountType, tableName, text string, columns ...Column) Context {
	return Context{
		AccountType: accountType,
		TableName:   tableName,
		Columns:     columns,
		text:        strings.TrimSpace(text),
	}
}
