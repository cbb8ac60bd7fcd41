package http

import (
	"log/slog"
	"net/http"

	"moneta/internal/recurring"
)

func (s *Server) handleRecurringBreakdown(w http.ResponseWriter, r *http.Request) {
	policy, err := recurring.PolicyByName(r.URL.Query().Get("policy"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rep, err := s.ledger.RecurringBreakdown(r.Context(), userID(r), policy)
	if err != nil {
		writeServiceError(w, r, err, "Server error while computing recurring breakdown")
		return
	}
	NewJSONResponse().Body(rep).Write(w)
}

// handleSummary serves the totals, cached per user until the next write.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if totals, ok := s.summaryCache.Get(uid); ok {
		slog.DebugContext(r.Context(), "Summary cache hit", "user_id", uid)
		NewJSONResponse().Header("X-Cache", "HIT").Body(totals).Write(w)
		return
	}
	totals, err := s.ledger.Summary(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err, "Server error while computing summary")
		return
	}
	s.summaryCache.Set(uid, totals)
	NewJSONResponse().Header("X-Cache", "MISS").Body(totals).Write(w)
}

func (s *Server) invalidateSummary(userID string) {
	s.summaryCache.Delete(userID)
}
