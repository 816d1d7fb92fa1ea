package textbookrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"textbookindent/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repo interface {
	Create(ctx context.Context, tb *model.Textbook) (int64, error)
	Detail(ctx context.Context, id int64) (*model.Textbook, error)
	ByCode(ctx context.Context, branchID int64, year, code string) (*model.Textbook, error)
	List(ctx context.Context, branchID int64, year string) ([]model.Textbook, error)

	// Ledger operations. Each is a single guarded UPDATE so mutations to one
	// textbook's counters are atomic relative to each other.
	Reserve(ctx context.Context, textbookID, qty int64) (int64, error)
	Release(ctx context.Context, textbookID, qty int64) error
	WriteOff(ctx context.Context, textbookID, qty int64) error
	Restore(ctx context.Context, textbookID, qty int64) error
	AddCopies(ctx context.Context, textbookID, qty int64) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Create(ctx context.Context, tb *model.Textbook) (int64, error) {
	const q = `
INSERT INTO textbooks (branch_id, academic_year, book_code, title, subject, publisher, unit_price, total_qty, available_qty)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		tb.BranchID, tb.AcademicYear, tb.BookCode, tb.Title, tb.Subject,
		tb.Publisher, tb.UnitPrice, tb.TotalQty,
	).Scan(&id)
	if err != nil {
		return 0, pgErr(err)
	}
	return id, nil
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Textbook, error) {
	const q = `
SELECT id, branch_id, academic_year, book_code, title, subject, publisher, unit_price, total_qty, available_qty
FROM textbooks
WHERE id = $1`
	var tb model.Textbook
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&tb.ID, &tb.BranchID, &tb.AcademicYear, &tb.BookCode, &tb.Title,
		&tb.Subject, &tb.Publisher, &tb.UnitPrice, &tb.TotalQty, &tb.AvailableQty,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tb, nil
}

func (r *repo) ByCode(ctx context.Context, branchID int64, year, code string) (*model.Textbook, error) {
	const q = `
SELECT id, branch_id, academic_year, book_code, title, subject, publisher, unit_price, total_qty, available_qty
FROM textbooks
WHERE branch_id = $1 AND academic_year = $2 AND book_code = $3`
	var tb model.Textbook
	err := r.db.QueryRowContext(ctx, q, branchID, year, code).Scan(
		&tb.ID, &tb.BranchID, &tb.AcademicYear, &tb.BookCode, &tb.Title,
		&tb.Subject, &tb.Publisher, &tb.UnitPrice, &tb.TotalQty, &tb.AvailableQty,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tb, nil
}

func (r *repo) List(ctx context.Context, branchID int64, year string) ([]model.Textbook, error) {
	const q = `
SELECT id, branch_id, academic_year, book_code, title, subject, publisher, unit_price, total_qty, available_qty
FROM textbooks
WHERE branch_id = $1 AND academic_year = $2
ORDER BY book_code`
	rows, err := r.db.QueryContext(ctx, q, branchID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Textbook
	for rows.Next() {
		var tb model.Textbook
		if err := rows.Scan(
			&tb.ID, &tb.BranchID, &tb.AcademicYear, &tb.BookCode, &tb.Title,
			&tb.Subject, &tb.Publisher, &tb.UnitPrice, &tb.TotalQty, &tb.AvailableQty,
		); err != nil {
			return nil, err
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}

// Reserve decrements available only when enough stock exists. The guard in
// the WHERE clause makes two racing reservations serialize on the row: the
// loser matches zero rows instead of driving the counter negative.
func (r *repo) Reserve(ctx context.Context, textbookID, qty int64) (int64, error) {
	const q = `
UPDATE textbooks
SET available_qty = available_qty - $2
WHERE id = $1
  AND available_qty >= $2
RETURNING available_qty`
	var avail int64
	err := r.db.QueryRowContext(ctx, q, textbookID, qty).Scan(&avail)
	if errors.Is(err, sql.ErrNoRows) {
		if _, derr := r.Detail(ctx, textbookID); derr != nil {
			return 0, derr
		}
		return 0, model.ErrInsufficientStock
	}
	if err != nil {
		return 0, pgErr(err)
	}
	return avail, nil
}

func (r *repo) Release(ctx context.Context, textbookID, qty int64) error {
	const q = `
UPDATE textbooks
SET available_qty = available_qty + $2
WHERE id = $1
  AND available_qty + $2 <= total_qty`
	res, err := r.db.ExecContext(ctx, q, textbookID, qty)
	if err != nil {
		return pgErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, derr := r.Detail(ctx, textbookID); derr != nil {
			return derr
		}
		return fmt.Errorf("release of %d on textbook %d exceeds total: %w",
			qty, textbookID, model.ErrInvariantViolation)
	}
	return nil
}

// WriteOff removes units from total without touching available. The guard
// keeps available <= total; the written-off units were reserved, so the
// headroom must exist unless the lifecycle is buggy.
func (r *repo) WriteOff(ctx context.Context, textbookID, qty int64) error {
	const q = `
UPDATE textbooks
SET total_qty = total_qty - $2
WHERE id = $1
  AND total_qty - $2 >= available_qty`
	res, err := r.db.ExecContext(ctx, q, textbookID, qty)
	if err != nil {
		return pgErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, derr := r.Detail(ctx, textbookID); derr != nil {
			return derr
		}
		return fmt.Errorf("write-off of %d on textbook %d breaks counters: %w",
			qty, textbookID, model.ErrInvariantViolation)
	}
	return nil
}

// Restore is the compensation inverse of WriteOff: total grows back,
// available stays put.
func (r *repo) Restore(ctx context.Context, textbookID, qty int64) error {
	const q = `
UPDATE textbooks
SET total_qty = total_qty + $2
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, textbookID, qty)
	if err != nil {
		return pgErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *repo) AddCopies(ctx context.Context, textbookID, qty int64) (int64, error) {
	const q = `
UPDATE textbooks
SET total_qty = total_qty + $2,
	available_qty = available_qty + $2
WHERE id = $1
RETURNING available_qty`
	var avail int64
	err := r.db.QueryRowContext(ctx, q, textbookID, qty).Scan(&avail)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, pgErr(err)
	}
	return avail, nil
}

// pgErr maps transient Postgres failures onto the retryable conflict error
// so the ledger's retry layer can tell them apart from terminal ones.
func pgErr(err error) error {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return fmt.Errorf("%s: %w", pge.Code, model.ErrConflict)
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%s: %w", pge.Message, ErrDuplicate)
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%s: %w", pge.Message, model.ErrInvariantViolation)
		}
	}
	return err
}

// ErrDuplicate: book code already taken for the branch/year.
var ErrDuplicate = errors.New("duplicate book code")
