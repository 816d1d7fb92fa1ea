package textbooksvc

import (
	"context"
	"errors"

	"textbookindent/model"
	repo "textbookindent/repository/textbook"
	"textbookindent/service/ledger"
)

// errors used by controllers

type ErrCode string

const (
	ErrBadInput  ErrCode = "BAD_INPUT"
	ErrDuplicate ErrCode = "DUPLICATE_CODE"
	ErrNotFound  ErrCode = "NOT_FOUND"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Repo interface {
	Create(ctx context.Context, tb *model.Textbook) (int64, error)
	Detail(ctx context.Context, id int64) (*model.Textbook, error)
	List(ctx context.Context, branchID int64, year string) ([]model.Textbook, error)
}

type Service interface {
	Create(ctx context.Context, tb model.Textbook) (int64, error)
	AddCopies(ctx context.Context, textbookID, qty int64) (int64, error)
	List(ctx context.Context, branchID int64, year string) ([]model.Textbook, error)
	Detail(ctx context.Context, id int64) (*model.Textbook, error)
}

type service struct {
	r  Repo
	lg ledger.Ledger
}

func New(r Repo, lg ledger.Ledger) Service { return &service{r: r, lg: lg} }

func (s *service) Create(ctx context.Context, tb model.Textbook) (int64, error) {
	if tb.BookCode == "" || tb.Title == "" || tb.AcademicYear == "" || tb.BranchID <= 0 {
		return 0, makeErr(ErrBadInput)
	}
	if tb.UnitPrice < 0 || tb.TotalQty < 0 {
		return 0, makeErr(ErrBadInput)
	}
	id, err := s.r.Create(ctx, &tb)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return 0, makeErr(ErrDuplicate)
		}
		return 0, err
	}
	return id, nil
}

// AddCopies restocks through the ledger so counter discipline stays in one
// place.
func (s *service) AddCopies(ctx context.Context, textbookID, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, makeErr(ErrBadInput)
	}
	avail, err := s.lg.AddCopies(ctx, textbookID, qty)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, makeErr(ErrNotFound)
		}
		return 0, err
	}
	return avail, nil
}

func (s *service) List(ctx context.Context, branchID int64, year string) ([]model.Textbook, error) {
	return s.r.List(ctx, branchID, year)
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Textbook, error) {
	tb, err := s.r.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return tb, nil
}
