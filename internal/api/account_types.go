package api

import (
	"net/http"

	"github.com/finchat/finchat/internal/schema"
)

type accountTypeView struct {
	AccountType schema.AccountType `json:"account_type"`
	Supported   bool               `json:"supported"`
	TableName   string             `json:"table_name,omitempty"`
	Description string             `json:"description,omitempty"`
	Columns     []schema.Column    `json:"columns,omitempty"`
}

func handleListAccountTypes(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schemas == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMAS_NOT_CONFIGURED", "schema registry is not configured", false, nil)
		return
	}
	items := make([]accountTypeView, 0, len(deps.Schemas.AccountTypes()))
	for _, accountType := range deps.Schemas.AccountTypes() {
		view := accountTypeView{AccountType: accountType}
		if sc, err := deps.Schemas.Lookup(accountType); err == nil {
			view.Supported = true
			view.TableName = sc.TableName
			view.Description = sc.Description
			view.Columns = sc.Columns
		}
		items = append(items, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_types": items})
}
