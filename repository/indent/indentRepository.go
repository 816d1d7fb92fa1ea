// repository/indent/repo.go
package indentrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"textbookindent/model"
)

type Repo interface {
	Create(ctx context.Context, in *model.Indent) (int64, error)
	Get(ctx context.Context, indentNo int64) (*model.Indent, error)
	ListByStudent(ctx context.Context, studentID int64) ([]model.Indent, error)

	MarkIssued(ctx context.Context, indentNo int64, at time.Time, expected *time.Time) error
	MarkCancelled(ctx context.Context, indentNo int64, reason string, at time.Time) error
	UpdateReturns(ctx context.Context, indentNo int64, items []model.IndentItem, status model.IndentStatus) error
	UpdatePayment(ctx context.Context, indentNo int64, paid, balance float64, status model.PaymentStatus) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

// Create inserts the indent and its lines in one transaction. The indent
// number is the BIGSERIAL key, so numbers come out unique and monotonic.
func (r *repo) Create(ctx context.Context, in *model.Indent) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `
INSERT INTO indents (student_id, student_name, admission_no, class_name, branch_id, academic_year,
	total_amount, paid_amount, balance_amount, payment_method, payment_status, status,
	expected_return, remarks)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id, created_at`
	var id int64
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, q,
		in.StudentID, in.StudentName, in.AdmissionNo, in.ClassName, in.BranchID, in.AcademicYear,
		in.TotalAmount, in.PaidAmount, in.BalanceAmount, in.PaymentMethod, in.PaymentStatus, in.Status,
		in.ExpectedReturn, in.Remarks,
	).Scan(&id, &createdAt)
	if err != nil {
		return 0, err
	}

	const qi = `
INSERT INTO indent_items (indent_id, textbook_id, book_code, title, unit_price, quantity, condition)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`
	for i := range in.Items {
		it := &in.Items[i]
		if err = tx.QueryRowContext(ctx, qi,
			id, it.TextbookID, it.BookCode, it.Title, it.UnitPrice, it.Quantity, it.Condition,
		).Scan(&it.ID); err != nil {
			return 0, err
		}
		it.IndentID = id
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	in.ID = id
	in.CreatedAt = createdAt
	return id, nil
}

func (r *repo) Get(ctx context.Context, indentNo int64) (*model.Indent, error) {
	const q = `
SELECT id, student_id, student_name, admission_no, class_name, branch_id, academic_year,
	total_amount, paid_amount, balance_amount, payment_method, payment_status, status,
	issue_date, expected_return, remarks, cancel_reason, cancelled_at, created_at
FROM indents
WHERE id = $1`
	var in model.Indent
	err := r.db.QueryRowContext(ctx, q, indentNo).Scan(
		&in.ID, &in.StudentID, &in.StudentName, &in.AdmissionNo, &in.ClassName, &in.BranchID, &in.AcademicYear,
		&in.TotalAmount, &in.PaidAmount, &in.BalanceAmount, &in.PaymentMethod, &in.PaymentStatus, &in.Status,
		&in.IssueDate, &in.ExpectedReturn, &in.Remarks, &in.CancelReason, &in.CancelledAt, &in.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.items(ctx, indentNo)
	if err != nil {
		return nil, err
	}
	in.Items = items
	return &in, nil
}

func (r *repo) items(ctx context.Context, indentNo int64) ([]model.IndentItem, error) {
	const q = `
SELECT id, indent_id, textbook_id, book_code, title, unit_price, quantity, returned_qty, written_off_qty, condition
FROM indent_items
WHERE indent_id = $1
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, indentNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.IndentItem
	for rows.Next() {
		var it model.IndentItem
		if err := rows.Scan(
			&it.ID, &it.IndentID, &it.TextbookID, &it.BookCode, &it.Title,
			&it.UnitPrice, &it.Quantity, &it.ReturnedQty, &it.WrittenOffQty, &it.Condition,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repo) ListByStudent(ctx context.Context, studentID int64) ([]model.Indent, error) {
	const q = `
SELECT id, student_id, student_name, admission_no, class_name, branch_id, academic_year,
	total_amount, paid_amount, balance_amount, payment_method, payment_status, status,
	issue_date, expected_return, remarks, cancel_reason, cancelled_at, created_at
FROM indents
WHERE student_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Indent
	for rows.Next() {
		var in model.Indent
		if err := rows.Scan(
			&in.ID, &in.StudentID, &in.StudentName, &in.AdmissionNo, &in.ClassName, &in.BranchID, &in.AcademicYear,
			&in.TotalAmount, &in.PaidAmount, &in.BalanceAmount, &in.PaymentMethod, &in.PaymentStatus, &in.Status,
			&in.IssueDate, &in.ExpectedReturn, &in.Remarks, &in.CancelReason, &in.CancelledAt, &in.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.items(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *repo) MarkIssued(ctx context.Context, indentNo int64, at time.Time, expected *time.Time) error {
	const q = `
UPDATE indents
SET status = 'ISSUED',
	issue_date = $2,
	expected_return = COALESCE($3, expected_return)
WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, indentNo, at, expected)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *repo) MarkCancelled(ctx context.Context, indentNo int64, reason string, at time.Time) error {
	const q = `
UPDATE indents
SET status = 'CANCELLED',
	cancel_reason = $2,
	cancelled_at = $3
WHERE id = $1 AND status IN ('PENDING','ISSUED')`
	res, err := r.db.ExecContext(ctx, q, indentNo, reason, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateReturns persists the post-return quantities of every line and the
// recomputed aggregate status in one transaction.
func (r *repo) UpdateReturns(ctx context.Context, indentNo int64, items []model.IndentItem, status model.IndentStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const qi = `
UPDATE indent_items
SET returned_qty = $2,
	written_off_qty = $3,
	condition = $4
WHERE id = $1 AND indent_id = $5`
	for _, it := range items {
		if _, err = tx.ExecContext(ctx, qi, it.ID, it.ReturnedQty, it.WrittenOffQty, it.Condition, indentNo); err != nil {
			return err
		}
	}

	const qs = `UPDATE indents SET status = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, qs, indentNo, status); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *repo) UpdatePayment(ctx context.Context, indentNo int64, paid, balance float64, status model.PaymentStatus) error {
	const q = `
UPDATE indents
SET paid_amount = $2,
	balance_amount = $3,
	payment_status = $4
WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, indentNo, paid, balance, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
