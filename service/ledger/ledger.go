// Package ledger defines the inventory ledger boundary: the only path
// through which textbook counters change. Implementations must keep
// 0 <= available <= total and make mutations to one textbook's counters
// linearizable with respect to each other.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"textbookindent/model"
)

type Ledger interface {
	// Reserve atomically takes qty from the available pool and returns the
	// post-decrement count. Fails with model.ErrInsufficientStock.
	Reserve(ctx context.Context, textbookID, qty int64) (int64, error)

	// Release puts qty back into the pool, capped at total. Over-release is
	// model.ErrInvariantViolation: a lifecycle bug, not a user error.
	Release(ctx context.Context, textbookID, qty int64) error

	// WriteOff permanently removes qty from total; available is untouched.
	WriteOff(ctx context.Context, textbookID, qty int64) error

	// Restore undoes a write-off during compensation.
	Restore(ctx context.Context, textbookID, qty int64) error

	// AddCopies is the admin restock: total and available both grow.
	AddCopies(ctx context.Context, textbookID, qty int64) (int64, error)
}

const defaultAttempts = 3

type retrying struct {
	next     Ledger
	attempts int
	log      *slog.Logger
}

// WithRetry wraps a ledger so lost races (model.ErrConflict) are retried a
// bounded number of times before being surfaced to the caller as transient.
func WithRetry(next Ledger, attempts int, log *slog.Logger) Ledger {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &retrying{next: next, attempts: attempts, log: log}
}

func (l *retrying) retry(ctx context.Context, op string, textbookID int64, fn func() error) error {
	var err error
	for i := 0; i < l.attempts; i++ {
		if err = fn(); !errors.Is(err, model.ErrConflict) {
			return err
		}
		l.log.Warn("ledger conflict, retrying", "op", op, "textbook_id", textbookID, "attempt", i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 5 * time.Millisecond):
		}
	}
	return err
}

func (l *retrying) Reserve(ctx context.Context, textbookID, qty int64) (int64, error) {
	var avail int64
	err := l.retry(ctx, "reserve", textbookID, func() error {
		var e error
		avail, e = l.next.Reserve(ctx, textbookID, qty)
		return e
	})
	return avail, err
}

func (l *retrying) Release(ctx context.Context, textbookID, qty int64) error {
	return l.retry(ctx, "release", textbookID, func() error {
		return l.next.Release(ctx, textbookID, qty)
	})
}

func (l *retrying) WriteOff(ctx context.Context, textbookID, qty int64) error {
	return l.retry(ctx, "write_off", textbookID, func() error {
		return l.next.WriteOff(ctx, textbookID, qty)
	})
}

func (l *retrying) Restore(ctx context.Context, textbookID, qty int64) error {
	return l.retry(ctx, "restore", textbookID, func() error {
		return l.next.Restore(ctx, textbookID, qty)
	})
}

func (l *retrying) AddCopies(ctx context.Context, textbookID, qty int64) (int64, error) {
	var avail int64
	err := l.retry(ctx, "add_copies", textbookID, func() error {
		var e error
		avail, e = l.next.AddCopies(ctx, textbookID, qty)
		return e
	})
	return avail, err
}
