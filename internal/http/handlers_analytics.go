package http

import (
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

// handleSummary aggregates ?month=YYYY-MM, defaulting to the current month.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context(), queryString(r, "month"))
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			invalid: "Invalid month",
			failed:  "Failed to fetch analytics summary",
		}, log.OpSummary)
		return
	}
	NewJSONResponse().Body(sum).Write(w, r)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r, "months")
	if err != nil {
		InvalidResponse("Invalid trend parameters", err).Write(w, r)
		return
	}
	points, err := s.ledger.Trend(r.Context(), queryString(r, "end"), months)
	if err != nil {
		s.writeError(w, r, err, errorMessages{
			invalid: "Invalid trend parameters",
			failed:  "Failed to fetch spending trend",
		}, log.OpTrend)
		return
	}
	NewJSONResponse().Body(points).Write(w, r)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(core.Categories()).Write(w, r)
}
