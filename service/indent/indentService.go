package indent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"textbookindent/model"
	notifyrepo "textbookindent/repository/notify"
	"textbookindent/service/ledger"
	"textbookindent/service/payment"
)

// dto

type CreateLine struct {
	TextbookID int64
	Quantity   int64
}

type CreateReq struct {
	StudentID      int64
	BranchID       int64
	AcademicYear   string
	Lines          []CreateLine
	PaymentMethod  string
	PaidAmount     float64
	ExpectedReturn *time.Time
	Remarks        string
}

type Created struct {
	Indent *model.Indent
	// OverpaymentWarning: paid more than the computed total; accounting was
	// clamped, the create still succeeded.
	OverpaymentWarning bool
}

type ReturnLine struct {
	ItemID    int64
	Quantity  int64
	Condition model.ItemCondition
}

type PaymentResult struct {
	Indent             *model.Indent
	OverpaymentWarning bool
}

// Catalog is the read side of the textbook collection; prices are
// snapshotted from here exactly once, at create time.
type Catalog interface {
	Detail(ctx context.Context, textbookID int64) (*model.Textbook, error)
}

type Students interface {
	Detail(ctx context.Context, studentID int64) (*model.Student, error)
}

type Repo interface {
	Create(ctx context.Context, in *model.Indent) (int64, error)
	Get(ctx context.Context, indentNo int64) (*model.Indent, error)
	ListByStudent(ctx context.Context, studentID int64) ([]model.Indent, error)
	MarkIssued(ctx context.Context, indentNo int64, at time.Time, expected *time.Time) error
	MarkCancelled(ctx context.Context, indentNo int64, reason string, at time.Time) error
	UpdateReturns(ctx context.Context, indentNo int64, items []model.IndentItem, status model.IndentStatus) error
	UpdatePayment(ctx context.Context, indentNo int64, paid, balance float64, status model.PaymentStatus) error
}

type Service interface {
	// Create reserves stock for every line, all-or-nothing, and persists a
	// PENDING indent with the reservation held.
	Create(ctx context.Context, req CreateReq) (*Created, error)

	// Issue confirms physical handover; no stock effect.
	Issue(ctx context.Context, indentNo int64) (*model.Indent, error)

	// Return processes one return event covering any subset of lines.
	Return(ctx context.Context, indentNo int64, lines []ReturnLine) (*model.Indent, error)

	// Cancel releases every outstanding reservation and terminates the indent.
	Cancel(ctx context.Context, indentNo int64, reason string) (*model.Indent, error)

	// RecordPayment settles amount against the indent's balance.
	RecordPayment(ctx context.Context, indentNo int64, amount float64) (*PaymentResult, error)

	Get(ctx context.Context, indentNo int64) (*model.Indent, error)
	ListByStudent(ctx context.Context, studentID int64) ([]model.Indent, error)
	Snapshot(ctx context.Context, indentNo int64) (*Snapshot, error)
}

// ----- Service implementation -----

type service struct {
	r        Repo
	catalog  Catalog
	students Students
	ledger   ledger.Ledger
	notify   notifyrepo.Repo
	log      *slog.Logger
}

func New(r Repo, catalog Catalog, students Students, lg ledger.Ledger, n notifyrepo.Repo, log *slog.Logger) Service {
	return &service{r: r, catalog: catalog, students: students, ledger: lg, notify: n, log: log}
}

func (s *service) Create(ctx context.Context, req CreateReq) (*Created, error) {
	if len(req.Lines) == 0 {
		return nil, makeErr(ErrEmptyItems)
	}
	for _, ln := range req.Lines {
		if ln.Quantity <= 0 {
			return nil, makeErr(ErrInvalidQuantity)
		}
	}
	if req.PaidAmount < 0 {
		return nil, makeErr(ErrInvalidAmount)
	}

	st, err := s.students.Detail(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, makeErr(ErrStudentNotFound)
		}
		return nil, err
	}

	// Reserve line by line; on any failure every reservation already taken
	// for this call is compensated before the error surfaces, so a partial
	// reservation is never observable.
	var (
		items    []model.IndentItem
		reserved []CreateLine
		total    float64
	)
	rollback := func() {
		for _, ln := range reserved {
			if rerr := s.ledger.Release(ctx, ln.TextbookID, ln.Quantity); rerr != nil {
				s.log.Error("compensating release failed", "textbook_id", ln.TextbookID, "qty", ln.Quantity, "err", rerr)
			}
		}
	}

	for _, ln := range req.Lines {
		tb, err := s.catalog.Detail(ctx, ln.TextbookID)
		if err != nil {
			rollback()
			if errors.Is(err, model.ErrNotFound) {
				return nil, makeErr(ErrBookNotFound)
			}
			return nil, err
		}

		if _, err := s.ledger.Reserve(ctx, ln.TextbookID, ln.Quantity); err != nil {
			rollback()
			return nil, mapLedgerErr(err)
		}
		reserved = append(reserved, ln)

		// Price is frozen into the line here; later catalog edits must not
		// change what this indent owes.
		items = append(items, model.IndentItem{
			TextbookID: tb.ID,
			BookCode:   tb.BookCode,
			Title:      tb.Title,
			UnitPrice:  tb.UnitPrice,
			Quantity:   ln.Quantity,
			Condition:  model.ConditionGood,
		})
		total += tb.UnitPrice * float64(ln.Quantity)
	}

	pay := payment.Reconcile(total, req.PaidAmount)

	in := &model.Indent{
		StudentID:      st.ID,
		StudentName:    st.DisplayName(),
		AdmissionNo:    st.AdmissionNo,
		ClassName:      st.ClassName,
		BranchID:       req.BranchID,
		AcademicYear:   req.AcademicYear,
		Items:          items,
		TotalAmount:    total,
		PaidAmount:     pay.Paid,
		BalanceAmount:  pay.Balance,
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  pay.Status,
		Status:         model.IndentPending,
		ExpectedReturn: req.ExpectedReturn,
		Remarks:        req.Remarks,
	}

	if _, err := s.r.Create(ctx, in); err != nil {
		rollback()
		return nil, err
	}

	return &Created{Indent: in, OverpaymentWarning: pay.Overpaid}, nil
}

func (s *service) Issue(ctx context.Context, indentNo int64) (*model.Indent, error) {
	in, err := s.get(ctx, indentNo)
	if err != nil {
		return nil, err
	}
	if in.Status != model.IndentPending {
		return nil, makeErr(ErrInvalidTransition)
	}

	now := time.Now().UTC()
	if err := s.r.MarkIssued(ctx, indentNo, now, in.ExpectedReturn); err != nil {
		return nil, err
	}
	in.Status = model.IndentIssued
	in.IssueDate = &now

	// Handover notification is fire-and-forget; delivery never gates the
	// transition.
	if s.notify != nil {
		if nerr := s.notify.Send(ctx, notifyrepo.Message{
			Event:       "INDENT_ISSUED",
			IndentNo:    in.ID,
			StudentName: in.StudentName,
			AdmissionNo: in.AdmissionNo,
			ClassName:   in.ClassName,
			TotalAmount: in.TotalAmount,
			Balance:     in.BalanceAmount,
		}); nerr != nil {
			s.log.Warn("issue notification failed", "indent_no", in.ID, "err", nerr)
		}
	}
	return in, nil
}

func (s *service) Return(ctx context.Context, indentNo int64, lines []ReturnLine) (*model.Indent, error) {
	if len(lines) == 0 {
		return nil, makeErr(ErrEmptyItems)
	}

	in, err := s.get(ctx, indentNo)
	if err != nil {
		return nil, err
	}
	if in.Status != model.IndentIssued && in.Status != model.IndentPartiallyReturned {
		return nil, makeErr(ErrInvalidTransition)
	}

	// Validate every line against a working copy before any counter moves.
	// A return event may carry several deltas for the same line.
	work := make([]model.IndentItem, len(in.Items))
	copy(work, in.Items)
	byID := make(map[int64]*model.IndentItem, len(work))
	for i := range work {
		byID[work[i].ID] = &work[i]
	}
	for _, ln := range lines {
		it, ok := byID[ln.ItemID]
		if !ok {
			return nil, makeErr(ErrItemNotFound)
		}
		if ln.Quantity <= 0 || it.ReturnedQty+ln.Quantity > it.Quantity {
			return nil, makeErr(ErrInvalidQuantity)
		}
		it.ReturnedQty += ln.Quantity
		if ln.Condition.Reissuable() {
			// Goes back into the pool below.
		} else {
			it.WrittenOffQty += ln.Quantity
		}
		it.Condition = it.Condition.Worse(ln.Condition)
	}

	// Apply ledger deltas, keeping an undo stack so a mid-flight failure
	// leaves the counters as they were.
	type undoFn func() error
	var undos []undoFn
	compensate := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			if uerr := undos[i](); uerr != nil {
				s.log.Error("return compensation failed", "indent_no", indentNo, "err", uerr)
			}
		}
	}
	for _, ln := range lines {
		it := byID[ln.ItemID]
		if ln.Condition.Reissuable() {
			if err := s.ledger.Release(ctx, it.TextbookID, ln.Quantity); err != nil {
				compensate()
				return nil, mapLedgerErr(err)
			}
			tid, q := it.TextbookID, ln.Quantity
			undos = append(undos, func() error {
				_, e := s.ledger.Reserve(ctx, tid, q)
				return e
			})
		} else {
			if err := s.ledger.WriteOff(ctx, it.TextbookID, ln.Quantity); err != nil {
				compensate()
				return nil, mapLedgerErr(err)
			}
			tid, q := it.TextbookID, ln.Quantity
			undos = append(undos, func() error {
				return s.ledger.Restore(ctx, tid, q)
			})
		}
	}

	status := model.IndentPartiallyReturned
	if allReturned(work) {
		status = model.IndentReturned
	}

	if err := s.r.UpdateReturns(ctx, indentNo, work, status); err != nil {
		compensate()
		return nil, err
	}

	in.Items = work
	in.Status = status
	return in, nil
}

func (s *service) Cancel(ctx context.Context, indentNo int64, reason string) (*model.Indent, error) {
	in, err := s.get(ctx, indentNo)
	if err != nil {
		return nil, err
	}
	if in.Status != model.IndentPending && in.Status != model.IndentIssued {
		return nil, makeErr(ErrInvalidTransition)
	}
	// An indent with any return activity runs its course via further
	// returns; it can no longer be cancelled.
	if in.AnyReturned() {
		return nil, makeErr(ErrInvalidTransition)
	}

	var released []model.IndentItem
	for _, it := range in.Items {
		if out := it.Outstanding(); out > 0 {
			if err := s.ledger.Release(ctx, it.TextbookID, out); err != nil {
				for _, r := range released {
					if _, rerr := s.ledger.Reserve(ctx, r.TextbookID, r.Outstanding()); rerr != nil {
						s.log.Error("cancel compensation failed", "indent_no", indentNo, "textbook_id", r.TextbookID, "err", rerr)
					}
				}
				return nil, mapLedgerErr(err)
			}
			released = append(released, it)
		}
	}

	now := time.Now().UTC()
	if err := s.r.MarkCancelled(ctx, indentNo, reason, now); err != nil {
		for _, r := range released {
			if _, rerr := s.ledger.Reserve(ctx, r.TextbookID, r.Outstanding()); rerr != nil {
				s.log.Error("cancel compensation failed", "indent_no", indentNo, "textbook_id", r.TextbookID, "err", rerr)
			}
		}
		return nil, err
	}
	in.Status = model.IndentCancelled
	in.CancelReason = reason
	in.CancelledAt = &now

	if s.notify != nil {
		if nerr := s.notify.Send(ctx, notifyrepo.Message{
			Event:       "INDENT_CANCELLED",
			IndentNo:    in.ID,
			StudentName: in.StudentName,
			AdmissionNo: in.AdmissionNo,
			ClassName:   in.ClassName,
			TotalAmount: in.TotalAmount,
			Balance:     in.BalanceAmount,
			Remarks:     reason,
		}); nerr != nil {
			s.log.Warn("cancel notification failed", "indent_no", in.ID, "err", nerr)
		}
	}
	return in, nil
}

func (s *service) RecordPayment(ctx context.Context, indentNo int64, amount float64) (*PaymentResult, error) {
	if amount <= 0 {
		return nil, makeErr(ErrInvalidAmount)
	}
	in, err := s.get(ctx, indentNo)
	if err != nil {
		return nil, err
	}
	if in.Status == model.IndentCancelled {
		return nil, makeErr(ErrInvalidTransition)
	}

	pay := payment.Reconcile(in.TotalAmount, in.PaidAmount+amount)
	if err := s.r.UpdatePayment(ctx, indentNo, pay.Paid, pay.Balance, pay.Status); err != nil {
		return nil, err
	}
	in.PaidAmount = pay.Paid
	in.BalanceAmount = pay.Balance
	in.PaymentStatus = pay.Status
	return &PaymentResult{Indent: in, OverpaymentWarning: pay.Overpaid}, nil
}

func (s *service) Get(ctx context.Context, indentNo int64) (*model.Indent, error) {
	return s.get(ctx, indentNo)
}

func (s *service) ListByStudent(ctx context.Context, studentID int64) ([]model.Indent, error) {
	return s.r.ListByStudent(ctx, studentID)
}

func (s *service) get(ctx context.Context, indentNo int64) (*model.Indent, error) {
	in, err := s.r.Get(ctx, indentNo)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return in, nil
}

func allReturned(items []model.IndentItem) bool {
	for _, it := range items {
		if it.ReturnedQty < it.Quantity {
			return false
		}
	}
	return true
}

func mapLedgerErr(err error) error {
	switch {
	case errors.Is(err, model.ErrInsufficientStock):
		return makeErr(ErrNoStock)
	case errors.Is(err, model.ErrConflict):
		return makeErr(ErrConflict)
	case errors.Is(err, model.ErrNotFound):
		return makeErr(ErrBookNotFound)
	}
	return err
}
