package http

import (
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
)

const (
	msgInvalidExpense  = "Invalid expense data"
	msgExpenseNotFound = "Expense not found"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter := services.ExpenseFilter{
		Category:  queryString(r, "category"),
		StartDate: queryString(r, "startDate"),
		EndDate:   queryString(r, "endDate"),
	}
	expenses, err := s.ledger.ListExpenses(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			invalid: "Invalid expense filter",
			failed:  "Failed to fetch expenses",
		}, log.OpList)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	NewJSONResponse().Body(expenses).Write(w, r)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		InvalidResponse("Invalid expense id", err).Write(w, r)
		return
	}
	e, err := s.ledger.GetExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			notFound: msgExpenseNotFound,
			failed:   "Failed to fetch expense",
		}, log.OpRead)
		return
	}
	NewJSONResponse().Body(e).Write(w, r)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		InvalidResponse(msgInvalidExpense, err).Write(w, r)
		return
	}
	e, err := s.ledger.CreateExpense(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			invalid: msgInvalidExpense,
			failed:  "Failed to create expense",
		}, log.OpCreate)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(e).Write(w, r)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		InvalidResponse("Invalid expense id", err).Write(w, r)
		return
	}
	var p core.ExpensePatch
	if err := decodeJSON(w, r, &p); err != nil {
		InvalidResponse(msgInvalidExpense, err).Write(w, r)
		return
	}
	e, err := s.ledger.UpdateExpense(r.Context(), id, p)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			invalid:  msgInvalidExpense,
			notFound: msgExpenseNotFound,
			failed:   "Failed to update expense",
		}, log.OpUpdate)
		return
	}
	NewJSONResponse().Body(e).Write(w, r)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		InvalidResponse("Invalid expense id", err).Write(w, r)
		return
	}
	found, err := s.ledger.DeleteExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, errorMessages{failed: "Failed to delete expense"}, log.OpDelete)
		return
	}
	if !found {
		NotFoundError(msgExpenseNotFound).Write(w, r)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w, r)
}
