package http

import (
	"net/http"
	"strings"

	"moneta/internal/core"
)

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err, "Server error while saving goal")
		return
	}
	if req.Name == nil || req.TargetAmount == nil {
		BadRequestError("Name and target amount are required").Write(w)
		return
	}
	g, err := s.ledger.CreateGoal(r.Context(), userID(r), strings.TrimSpace(req.ID), *req.Name, *req.TargetAmount)
	if err != nil {
		writeServiceError(w, r, err, "Server error while saving goal")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(g).Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.ledger.ListGoals(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Server error while fetching goals")
		return
	}
	if len(goals) == 0 {
		NotFoundError("No goals found").Write(w)
		return
	}
	NewJSONResponse().Body(goals).Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err, "Server error while updating goal")
		return
	}
	g, err := s.ledger.UpdateGoal(r.Context(), userID(r), r.PathValue("id"), req.toPatch())
	if err != nil {
		writeServiceError(w, r, err, "Server error while updating goal")
		return
	}
	NewJSONResponse().Body(g).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.DeleteGoal(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Server error while deleting goal")
		return
	}
	s.invalidateSummary(userID(r))
	NewJSONResponse().Body(struct {
		Message             string `json:"message"`
		DeletedTransactions int    `json:"deletedTransactions"`
	}{"Goal deleted successfully", n}).Write(w)
}

func (s *Server) handleGoalTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.GoalTransactions(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Server error while fetching goal transactions")
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}
