package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"moneta/internal/core"
)

type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
	GoalDeleted        EventKind = "goal.deleted"
)

// LedgerEvent is published after every committed write on the server.
// Transaction events carry the full record; goal deletions carry the ids of
// the transactions removed with the goal.
type LedgerEvent struct {
	Kind           EventKind         `json:"kind"`
	UserID         string            `json:"userId"`
	Transaction    *core.Transaction `json:"transaction,omitempty"`
	GoalID         string            `json:"goalId,omitempty"`
	TransactionIDs []string          `json:"transactionIds,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, userID string, tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Kind:        kind,
		UserID:      userID,
		Transaction: &tx,
		GoalID:      tx.GoalID,
		Timestamp:   time.Now(),
	}
}

func NewGoalDeletedEvent(userID, goalID string, txIDs []string) *LedgerEvent {
	return &LedgerEvent{
		Kind:           GoalDeleted,
		UserID:         userID,
		GoalID:         goalID,
		TransactionIDs: txIDs,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects events a consumer cannot act on.
func (m *LedgerEvent) Validate() error {
	if m.UserID == "" {
		return errors.New("missing userId")
	}
	switch m.Kind {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
		if m.Transaction == nil || m.Transaction.ID == "" {
			return fmt.Errorf("%s without transaction", m.Kind)
		}
	case GoalDeleted:
		if m.GoalID == "" {
			return errors.New("goal.deleted without goalId")
		}
	default:
		return fmt.Errorf("unknown event kind %q", m.Kind)
	}
	return nil
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
