package http

import (
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

const (
	msgInvalidBudget  = "Invalid budget data"
	msgBudgetNotFound = "Budget not found"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.ListBudgets(r.Context())
	if err != nil {
		s.writeError(w, r, err, errorMessages{failed: "Failed to fetch budgets"}, log.OpList)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	NewJSONResponse().Body(budgets).Write(w, r)
}

func (s *Server) handleBudgetByMonth(w http.ResponseWriter, r *http.Request) {
	b, err := s.ledger.BudgetByMonth(r.Context(), r.PathValue("month"))
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			invalid:  "Invalid month",
			notFound: "Budget not found for this month",
			failed:   "Failed to fetch budget",
		}, log.OpRead)
		return
	}
	NewJSONResponse().Body(b).Write(w, r)
}

// handleSaveBudget creates the month's budget or replaces its amount.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var in core.BudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		InvalidResponse(msgInvalidBudget, err).Write(w, r)
		return
	}
	b, err := s.ledger.SaveBudget(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			invalid: msgInvalidBudget,
			failed:  "Failed to create budget",
		}, log.OpCreate)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(b).Write(w, r)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		InvalidResponse("Invalid budget id", err).Write(w, r)
		return
	}
	var p core.BudgetPatch
	if err := decodeJSON(w, r, &p); err != nil {
		InvalidResponse(msgInvalidBudget, err).Write(w, r)
		return
	}
	b, err := s.ledger.UpdateBudget(r.Context(), id, p)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			invalid:  msgInvalidBudget,
			notFound: msgBudgetNotFound,
			failed:   "Failed to update budget",
		}, log.OpUpdate)
		return
	}
	NewJSONResponse().Body(b).Write(w, r)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		InvalidResponse("Invalid budget id", err).Write(w, r)
		return
	}
	found, err := s.ledger.DeleteBudget(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, errorMessages{failed: "Failed to delete budget"}, log.OpDelete)
		return
	}
	if !found {
		NotFoundError(msgBudgetNotFound).Write(w, r)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w, r)
}
