package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jizhang/internal/core"
	"jizhang/internal/events"
	"jizhang/internal/storage"
)

// ExpenseGetter loads a recorded expense by id.
type ExpenseGetter interface {
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
}

// Worker consumes change notifications and mirrors the changed
// expense into an external sheet.
type Worker struct {
	store  ExpenseGetter
	writer ExpenseWriter
}

func NewWorker(store ExpenseGetter, writer ExpenseWriter) *Worker {
	return &Worker{store: store, writer: writer}
}

// HandleExpenseChanged loads the expense behind a change notification
// and appends it to the sheet. A missing expense is dropped without
// error so the message is not requeued forever.
func (w *Worker) HandleExpenseChanged(ctx context.Context, msg *events.ExpenseChangedMessage) error {
	slog.InfoContext(ctx, "Processing change notification",
		"id", msg.ID,
		"user_id", msg.UserID)

	expense, err := w.store.GetExpense(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Expense no longer exists, skipping export", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get expense: %w", err)
	}

	ref, err := w.writer.Append(ctx, expense)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	slog.InfoContext(ctx, "Expense exported",
		"id", msg.ID,
		"sheet_ref", ref,
		"item_name", expense.ItemName,
		"amount_fen", expense.Amount.Fen)
	return nil
}
