package studentrepo

import (
	"context"
	"database/sql"
	"errors"

	"textbookindent/model"
)

type Repo interface {
	Detail(ctx context.Context, id int64) (*model.Student, error)
	ByAdmissionNo(ctx context.Context, admissionNo string) (*model.Student, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Detail(ctx context.Context, id int64) (*model.Student, error) {
	const q = `
SELECT id, admission_no, first_name, last_name, class_name, section, branch_id
FROM students
WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) ByAdmissionNo(ctx context.Context, admissionNo string) (*model.Student, error) {
	const q = `
SELECT id, admission_no, first_name, last_name, class_name, section, branch_id
FROM students
WHERE admission_no = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, admissionNo))
}

func (r *repo) scanOne(row *sql.Row) (*model.Student, error) {
	var st model.Student
	err := row.Scan(&st.ID, &st.AdmissionNo, &st.FirstName, &st.LastName, &st.ClassName, &st.Section, &st.BranchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
