// Package http provides the REST API server.
//
// This file holds the request payloads and the helpers that decode them.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"moneta/internal/core"
	"moneta/internal/services"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var (
	errEmptyBody     = errors.New("request body is empty")
	errMalformedJSON = errors.New("malformed JSON")
)

// decodeJSON reads one JSON document from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			return core.Invalid("amount", err)
		case errors.Is(err, core.ErrInvalidDate):
			return core.Invalid("date", err)
		}
		return fmt.Errorf("%w: %v", errMalformedJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errMalformedJSON)
	}
	return nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// transactionRequest is the body of POST and PUT /api/transactions. On PUT
// absent fields are left unchanged.
type transactionRequest struct {
	ID       string      `json:"id"`
	Amount   *core.Money `json:"amount"`
	Type     *string     `json:"type"`
	Category *string     `json:"category"`
	Date     *core.Date  `json:"date"`
	Note     *string     `json:"note"`
	GoalID   *string     `json:"goalId"`
}

// toTransaction validates a create request. A missing date means today.
func (req transactionRequest) toTransaction(today core.Date) (core.Transaction, error) {
	if req.Amount == nil {
		return core.Transaction{}, core.Invalid("amount", core.ErrInvalidAmount)
	}
	if req.Type == nil {
		return core.Transaction{}, core.Invalid("type", core.ErrInvalidType)
	}
	ty, err := core.ParseTxType(*req.Type)
	if err != nil {
		return core.Transaction{}, core.Invalid("type", err)
	}
	tx := core.Transaction{
		ID:     strings.TrimSpace(req.ID),
		Amount: *req.Amount,
		Type:   ty,
		Date:   today,
	}
	if req.Category != nil {
		tx.Category = *req.Category
	}
	if req.Date != nil && !req.Date.IsZero() {
		tx.Date = *req.Date
	}
	if req.Note != nil {
		tx.Note = sanitizeInput(*req.Note)
	}
	if req.GoalID != nil {
		tx.GoalID = strings.TrimSpace(*req.GoalID)
	}
	return tx, nil
}

func (req transactionRequest) toPatch() (services.TransactionPatch, error) {
	p := services.TransactionPatch{
		Amount:   req.Amount,
		Category: req.Category,
		GoalID:   req.GoalID,
	}
	if req.Type != nil {
		ty, err := core.ParseTxType(*req.Type)
		if err != nil {
			return services.TransactionPatch{}, core.Invalid("type", err)
		}
		p.Type = &ty
	}
	if req.Date != nil {
		if req.Date.IsZero() {
			return services.TransactionPatch{}, core.Invalid("date", core.ErrInvalidDate)
		}
		p.Date = req.Date
	}
	if req.Note != nil {
		note := sanitizeInput(*req.Note)
		p.Note = &note
	}
	return p, nil
}

type goalRequest struct {
	ID            string      `json:"id"`
	Name          *string     `json:"name"`
	TargetAmount  *core.Money `json:"targetAmount"`
	CurrentAmount *core.Money `json:"currentAmount"`
}

func (req goalRequest) toPatch() services.GoalPatch {
	return services.GoalPatch{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
	}
}

// sanitizeInput removes control characters except tab and newlines, then
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
