package indent

import "errors"

// errors used by controllers

type ErrCode string

const (
	ErrEmptyItems        ErrCode = "EMPTY_ITEMS"
	ErrInvalidQuantity   ErrCode = "INVALID_QUANTITY"
	ErrInvalidAmount     ErrCode = "INVALID_AMOUNT"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrNoStock           ErrCode = "NO_STOCK"
	ErrBookNotFound      ErrCode = "BOOK_NOT_FOUND"
	ErrStudentNotFound   ErrCode = "STUDENT_NOT_FOUND"
	ErrItemNotFound      ErrCode = "ITEM_NOT_FOUND"
	ErrNotFound          ErrCode = "NOT_FOUND"

	// ErrConflict: the ledger lost its bounded retries against a concurrent
	// writer. Safe for the caller to retry the whole call.
	ErrConflict ErrCode = "CONFLICT"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
