package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"moneta/internal/amqp"
	"moneta/internal/core"
	applog "moneta/internal/log"
	"moneta/internal/sheets"
)

// SyncWorker mirrors ledger events into a spreadsheet.
type SyncWorker struct {
	writer sheets.TransactionWriter
	log    *applog.StructuredLogger

	processed atomic.Int64
	failed    atomic.Int64
}

// Stats summarises the worker's activity since start.
type Stats struct {
	Processed int64
	Failed    int64
}

func NewSyncWorker(writer sheets.TransactionWriter) *SyncWorker {
	logger := applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentWorker})
	return &SyncWorker{writer: writer, log: applog.NewStructuredLogger(logger)}
}

// HandleEvent applies one ledger event to the mirror. A returned error makes
// the consumer requeue the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		applog.FieldEventKind, ev.Kind,
		applog.FieldUserID, ev.UserID)

	var err error
	switch ev.Kind {
	case amqp.TransactionCreated:
		err = w.appendTransaction(ctx, ev.UserID, *ev.Transaction)
	case amqp.TransactionUpdated:
		err = w.updateTransaction(ctx, ev.UserID, *ev.Transaction)
	case amqp.TransactionDeleted:
		err = w.deleteTransaction(ctx, ev.Transaction.ID)
	case amqp.GoalDeleted:
		err = w.deleteGoalTransactions(ctx, ev.GoalID, ev.TransactionIDs)
	default:
		err = fmt.Errorf("unsupported event kind %q", ev.Kind)
	}

	if err != nil {
		w.failed.Add(1)
		w.log.LogError(ctx, "Failed to mirror ledger event", err, applog.OpSync,
			applog.NewFields().WithUser(ev.UserID).With(applog.FieldEventKind, string(ev.Kind)))
		return err
	}
	w.processed.Add(1)
	return nil
}

func (w *SyncWorker) Stats() Stats {
	return Stats{Processed: w.processed.Load(), Failed: w.failed.Load()}
}

func (w *SyncWorker) appendTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	ref, err := w.writer.Append(ctx, userID, tx)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.log.LogTransaction(ctx, applog.OpCreate, userID, tx.ID, string(tx.Type), tx.Category, tx.Amount.String())
	slog.DebugContext(ctx, "Mirrored row appended", applog.FieldTransactionID, tx.ID, "sheets_ref", ref)
	return nil
}

// updateTransaction rewrites the mirrored row, appending it when the create
// event was never mirrored.
func (w *SyncWorker) updateTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	err := w.writer.UpdateByID(ctx, userID, tx)
	if errors.Is(err, sheets.ErrRowNotFound) {
		slog.WarnContext(ctx, "Mirrored row missing on update, appending",
			applog.FieldTransactionID, tx.ID)
		return w.appendTransaction(ctx, userID, tx)
	}
	if err != nil {
		return fmt.Errorf("update sheets row: %w", err)
	}
	w.log.LogTransaction(ctx, applog.OpUpdate, userID, tx.ID, string(tx.Type), tx.Category, tx.Amount.String())
	return nil
}

func (w *SyncWorker) deleteTransaction(ctx context.Context, id string) error {
	err := w.writer.DeleteByID(ctx, id)
	if errors.Is(err, sheets.ErrRowNotFound) {
		slog.WarnContext(ctx, "Mirrored row already gone", applog.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete sheets row: %w", err)
	}
	slog.InfoContext(ctx, "Successfully deleted mirrored transaction", applog.FieldTransactionID, id)
	return nil
}

func (w *SyncWorker) deleteGoalTransactions(ctx context.Context, goalID string, ids []string) error {
	n, err := w.writer.DeleteMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("delete goal rows: %w", err)
	}
	slog.InfoContext(ctx, "Removed mirrored goal transactions",
		applog.FieldGoalID, goalID,
		"requested", len(ids),
		"deleted", n)
	return nil
}
