package http

import (
	"net/http"

	"moneta/internal/core"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err, "Server error while saving transaction")
		return
	}
	tx, err := req.toTransaction(core.DateOf(s.now()))
	if err != nil {
		writeServiceError(w, r, err, "Server error while saving transaction")
		return
	}
	created, err := s.ledger.CreateTransaction(r.Context(), userID(r), tx)
	if err != nil {
		writeServiceError(w, r, err, "Server error while saving transaction")
		return
	}
	s.invalidateSummary(userID(r))
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListTransactions(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Server error while fetching transactions")
		return
	}
	if len(txs) == 0 {
		NotFoundError("No transactions found").Write(w)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err, "Server error while updating transaction")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeServiceError(w, r, err, "Server error while updating transaction")
		return
	}
	updated, err := s.ledger.UpdateTransaction(r.Context(), userID(r), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Server error while updating transaction")
		return
	}
	s.invalidateSummary(userID(r))
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Server error while deleting transaction")
		return
	}
	s.invalidateSummary(userID(r))
	NewJSONResponse().Message("Transaction deleted successfully").Write(w)
}
