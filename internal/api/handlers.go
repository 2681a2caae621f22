package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"warikanbot/internal/split"
)

func (a *API) handleScopeTotals(w http.ResponseWriter, r *http.Request) {
	scopeID := mux.Vars(r)["scope_id"]

	totals, err := a.store.TotalsByName(r.Context(), scopeID)
	if err != nil {
		a.log.Errorw("failed to get totals", "scope", scopeID, "error", err)
		http.Error(w, "failed to get totals", http.StatusInternalServerError)
		return
	}
	if totals == nil {
		totals = []split.ParticipantTotal{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(totals)
}

type transferJSON struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (a *API) handleScopeSettlement(w http.ResponseWriter, r *http.Request) {
	scopeID := mux.Vars(r)["scope_id"]

	totals, err := a.store.TotalsByName(r.Context(), scopeID)
	if err != nil {
		a.log.Errorw("failed to get totals", "scope", scopeID, "error", err)
		http.Error(w, "failed to get totals", http.StatusInternalServerError)
		return
	}

	plan := split.Settle(totals)
	status := "ok"
	switch {
	case plan.NoData:
		status = "no_data"
	case plan.Settled:
		status = "settled"
	}

	transfers := make([]transferJSON, 0, len(plan.Transfers))
	for _, t := range plan.Transfers {
		transfers = append(transfers, transferJSON{
			From:   t.From,
			To:     t.To,
			Amount: t.Amount.StringFixed(2),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"transfers": transfers,
	})
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
