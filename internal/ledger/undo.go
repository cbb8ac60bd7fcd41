package ledger

import (
	"time"

	"moneta/internal/core"
)

// UndoBuffer holds the most recently deleted transaction. A new Put replaces
// whatever was there.
type UndoBuffer struct {
	window  time.Duration
	tx      core.Transaction
	at      time.Time
	present bool
}

// NewUndoBuffer returns a buffer whose entry expires after window. A zero
// window never expires.
func NewUndoBuffer(window time.Duration) *UndoBuffer {
	return &UndoBuffer{window: window}
}

func (b *UndoBuffer) Put(tx core.Transaction, now time.Time) {
	b.tx, b.at, b.present = tx, now, true
}

// Peek returns the buffered transaction without removing it.
func (b *UndoBuffer) Peek(now time.Time) (core.Transaction, bool) {
	if !b.present {
		return core.Transaction{}, false
	}
	if b.window > 0 && now.Sub(b.at) > b.window {
		b.Clear()
		return core.Transaction{}, false
	}
	return b.tx, true
}

func (b *UndoBuffer) Clear() {
	b.tx, b.at, b.present = core.Transaction{}, time.Time{}, false
}
