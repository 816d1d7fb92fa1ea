package indent_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"textbookindent/model"
	notifyrepo "textbookindent/repository/notify"
	textbookrepo "textbookindent/repository/textbook"
	indentsvc "textbookindent/service/indent"
	"textbookindent/service/ledger"

	"github.com/stretchr/testify/require"
)

// --- in-memory indent repo ---

type memRepo struct {
	mu      sync.Mutex
	seq     int64
	itemSeq int64
	indents map[int64]*model.Indent
}

var _ indentsvc.Repo = (*memRepo)(nil)

func newMemRepo() *memRepo { return &memRepo{indents: map[int64]*model.Indent{}} }

func clone(in *model.Indent) *model.Indent {
	cp := *in
	cp.Items = append([]model.IndentItem(nil), in.Items...)
	return &cp
}

func (m *memRepo) Create(_ context.Context, in *model.Indent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	in.ID = m.seq
	in.CreatedAt = time.Now().UTC()
	for i := range in.Items {
		m.itemSeq++
		in.Items[i].ID = m.itemSeq
		in.Items[i].IndentID = in.ID
	}
	m.indents[in.ID] = clone(in)
	return in.ID, nil
}

func (m *memRepo) Get(_ context.Context, indentNo int64) (*model.Indent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.indents[indentNo]
	if !ok {
		return nil, model.ErrNotFound
	}
	return clone(in), nil
}

func (m *memRepo) ListByStudent(_ context.Context, studentID int64) ([]model.Indent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Indent
	for _, in := range m.indents {
		if in.StudentID == studentID {
			out = append(out, *clone(in))
		}
	}
	return out, nil
}

func (m *memRepo) MarkIssued(_ context.Context, indentNo int64, at time.Time, expected *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.indents[indentNo]
	if !ok {
		return model.ErrNotFound
	}
	in.Status = model.IndentIssued
	in.IssueDate = &at
	if expected != nil {
		in.ExpectedReturn = expected
	}
	return nil
}

func (m *memRepo) MarkCancelled(_ context.Context, indentNo int64, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.indents[indentNo]
	if !ok {
		return model.ErrNotFound
	}
	in.Status = model.IndentCancelled
	in.CancelReason = reason
	in.CancelledAt = &at
	return nil
}

func (m *memRepo) UpdateReturns(_ context.Context, indentNo int64, items []model.IndentItem, status model.IndentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.indents[indentNo]
	if !ok {
		return model.ErrNotFound
	}
	in.Items = append([]model.IndentItem(nil), items...)
	in.Status = status
	return nil
}

func (m *memRepo) UpdatePayment(_ context.Context, indentNo int64, paid, balance float64, status model.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.indents[indentNo]
	if !ok {
		return model.ErrNotFound
	}
	in.PaidAmount = paid
	in.BalanceAmount = balance
	in.PaymentStatus = status
	return nil
}

// --- students stub ---

type studentsStub struct{}

func (studentsStub) Detail(_ context.Context, id int64) (*model.Student, error) {
	if id == 404 {
		return nil, model.ErrNotFound
	}
	return &model.Student{
		ID:          id,
		AdmissionNo: "ADM-0042",
		FirstName:   "Asha",
		LastName:    "Rao",
		ClassName:   "VII-B",
		BranchID:    1,
	}, nil
}

// --- notifier spy ---

type notifySpy struct {
	mu   sync.Mutex
	msgs []notifyrepo.Message
}

func (n *notifySpy) Send(_ context.Context, m notifyrepo.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, m)
	return nil
}

// --- harness ---

type fixture struct {
	svc   indentsvc.Service
	store *textbookrepo.MemStore
	spy   *notifySpy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := textbookrepo.NewMemStore()
	spy := &notifySpy{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := indentsvc.New(newMemRepo(), store, studentsStub{}, ledger.WithRetry(store, 3, log), spy, log)
	return &fixture{svc: svc, store: store, spy: spy}
}

func (f *fixture) addBook(t *testing.T, code string, price float64, qty int64) int64 {
	t.Helper()
	id, err := f.store.Create(context.Background(), &model.Textbook{
		BranchID:     1,
		AcademicYear: "2025-26",
		BookCode:     code,
		Title:        "Textbook " + code,
		UnitPrice:    price,
		TotalQty:     qty,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) available(t *testing.T, id int64) int64 {
	t.Helper()
	tb, err := f.store.Detail(context.Background(), id)
	require.NoError(t, err)
	return tb.AvailableQty
}

func (f *fixture) total(t *testing.T, id int64) int64 {
	t.Helper()
	tb, err := f.store.Detail(context.Background(), id)
	require.NoError(t, err)
	return tb.TotalQty
}

func createReq(studentID int64, lines ...indentsvc.CreateLine) indentsvc.CreateReq {
	return indentsvc.CreateReq{
		StudentID:     studentID,
		BranchID:      1,
		AcademicYear:  "2025-26",
		Lines:         lines,
		PaymentMethod: "CASH",
	}
}

// --- create ---

func TestCreateReservesStockImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 3}))
	require.NoError(t, err)
	require.Equal(t, model.IndentPending, out.Indent.Status)
	require.Equal(t, int64(7), f.available(t, b))
	require.Equal(t, 300.0, out.Indent.TotalAmount)
	require.Equal(t, 300.0, out.Indent.BalanceAmount)
	require.Equal(t, model.PaymentPending, out.Indent.PaymentStatus)
	require.Equal(t, "Asha Rao", out.Indent.StudentName)
	require.Equal(t, model.ItemIssued, out.Indent.Items[0].Status())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	_, err := f.svc.Create(ctx, createReq(1))
	require.Equal(t, indentsvc.ErrEmptyItems, indentsvc.Code(err))

	_, err = f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 0}))
	require.Equal(t, indentsvc.ErrInvalidQuantity, indentsvc.Code(err))

	_, err = f.svc.Create(ctx, createReq(404, indentsvc.CreateLine{TextbookID: b, Quantity: 1}))
	require.Equal(t, indentsvc.ErrStudentNotFound, indentsvc.Code(err))

	require.Equal(t, int64(10), f.available(t, b))
}

func TestCreateRollsBackOnInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addBook(t, "A", 50, 10)
	b := f.addBook(t, "B", 80, 1)

	_, err := f.svc.Create(ctx,
		createReq(1,
			indentsvc.CreateLine{TextbookID: a, Quantity: 4},
			indentsvc.CreateLine{TextbookID: b, Quantity: 2},
		))
	require.Equal(t, indentsvc.ErrNoStock, indentsvc.Code(err))

	// The reservation taken for line A must have been compensated.
	require.Equal(t, int64(10), f.available(t, a))
	require.Equal(t, int64(1), f.available(t, b))
}

func TestCreateRollsBackOnUnknownBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addBook(t, "A", 50, 10)

	_, err := f.svc.Create(ctx,
		createReq(1,
			indentsvc.CreateLine{TextbookID: a, Quantity: 4},
			indentsvc.CreateLine{TextbookID: 999, Quantity: 1},
		))
	require.Equal(t, indentsvc.ErrBookNotFound, indentsvc.Code(err))
	require.Equal(t, int64(10), f.available(t, a))
}

func TestCreateSnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 2}))
	require.NoError(t, err)
	require.Equal(t, 100.0, out.Indent.Items[0].UnitPrice)

	// A later catalog price change must not touch the frozen line price.
	got, err := f.svc.Get(ctx, out.Indent.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, got.Items[0].UnitPrice)
	require.Equal(t, 200.0, got.TotalAmount)
}

// --- issue ---

func TestIssueFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 3}))
	require.NoError(t, err)
	before := f.available(t, b)

	in, err := f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)
	require.Equal(t, model.IndentIssued, in.Status)
	require.NotNil(t, in.IssueDate)

	// Stock was reserved at create; issue is a pure confirmation.
	require.Equal(t, before, f.available(t, b))

	require.Len(t, f.spy.msgs, 1)
	require.Equal(t, "INDENT_ISSUED", f.spy.msgs[0].Event)

	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.Equal(t, indentsvc.ErrInvalidTransition, indentsvc.Code(err))
}

// --- return ---

func TestRoundTripFullGoodReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 3}))
	require.NoError(t, err)
	require.Equal(t, int64(7), f.available(t, b))

	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)

	in, err := f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: out.Indent.Items[0].ID, Quantity: 3, Condition: model.ConditionGood},
	})
	require.NoError(t, err)
	require.Equal(t, model.IndentReturned, in.Status)
	require.Equal(t, model.ItemReturned, in.Items[0].Status())
	require.Equal(t, int64(10), f.available(t, b))
	require.Equal(t, int64(10), f.total(t, b))
}

func TestPartialPathWithDamagedWriteOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addBook(t, "C", 120, 20)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: c, Quantity: 5}))
	require.NoError(t, err)
	require.Equal(t, int64(15), f.available(t, c))

	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)
	itemID := out.Indent.Items[0].ID

	in, err := f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: itemID, Quantity: 2, Condition: model.ConditionGood},
	})
	require.NoError(t, err)
	require.Equal(t, model.IndentPartiallyReturned, in.Status)
	require.Equal(t, model.ItemPartiallyReturned, in.Items[0].Status())
	require.Equal(t, int64(17), f.available(t, c))

	// Remaining 3 come back, one damaged beyond use: only 2 re-enter the
	// pool, one is written off from total for good.
	in, err = f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: itemID, Quantity: 2, Condition: model.ConditionGood},
		{ItemID: itemID, Quantity: 1, Condition: model.ConditionDamaged},
	})
	require.NoError(t, err)
	require.Equal(t, model.IndentReturned, in.Status)
	require.Equal(t, int64(19), f.available(t, c))
	require.Equal(t, int64(19), f.total(t, c))
	require.Equal(t, int64(1), in.Items[0].WrittenOffQty)
	require.Equal(t, model.ConditionDamaged, in.Items[0].Condition)
	require.Equal(t, model.ItemReturned, in.Items[0].Status())
}

func TestReturnValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 2}))
	require.NoError(t, err)
	itemID := out.Indent.Items[0].ID

	// Return before issue is not a thing.
	_, err = f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: itemID, Quantity: 1, Condition: model.ConditionGood},
	})
	require.Equal(t, indentsvc.ErrInvalidTransition, indentsvc.Code(err))

	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)

	_, err = f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: itemID, Quantity: 3, Condition: model.ConditionGood},
	})
	require.Equal(t, indentsvc.ErrInvalidQuantity, indentsvc.Code(err))

	// Two deltas for the same line count cumulatively.
	_, err = f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: itemID, Quantity: 1, Condition: model.ConditionGood},
		{ItemID: itemID, Quantity: 2, Condition: model.ConditionGood},
	})
	require.Equal(t, indentsvc.ErrInvalidQuantity, indentsvc.Code(err))

	_, err = f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: 9999, Quantity: 1, Condition: model.ConditionGood},
	})
	require.Equal(t, indentsvc.ErrItemNotFound, indentsvc.Code(err))

	// No counter moved through any of the failures.
	require.Equal(t, int64(8), f.available(t, b))
}

func TestReturnAfterCompleteIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)

	_, err = f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: out.Indent.Items[0].ID, Quantity: 1, Condition: model.ConditionGood},
	})
	require.NoError(t, err)

	_, err = f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: out.Indent.Items[0].ID, Quantity: 1, Condition: model.ConditionGood},
	})
	require.Equal(t, indentsvc.ErrInvalidTransition, indentsvc.Code(err))
}

func TestReturnLostUnitResolvesObligation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 5)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 2}))
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)

	in, err := f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: out.Indent.Items[0].ID, Quantity: 2, Condition: model.ConditionLost},
	})
	require.NoError(t, err)
	require.Equal(t, model.IndentReturned, in.Status)
	require.Equal(t, model.ItemLost, in.Items[0].Status())
	require.Equal(t, int64(3), f.available(t, b))
	require.Equal(t, int64(3), f.total(t, b))
}

// --- cancel ---

func TestCancelBeforeIssueRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.addBook(t, "D", 90, 8)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: d, Quantity: 4}))
	require.NoError(t, err)
	require.Equal(t, int64(4), f.available(t, d))

	in, err := f.svc.Cancel(ctx, out.Indent.ID, "duplicate entry")
	require.NoError(t, err)
	require.Equal(t, model.IndentCancelled, in.Status)
	require.Equal(t, "duplicate entry", in.CancelReason)
	require.Equal(t, int64(8), f.available(t, d))

	require.Len(t, f.spy.msgs, 1)
	require.Equal(t, "INDENT_CANCELLED", f.spy.msgs[0].Event)
	require.Equal(t, "duplicate entry", f.spy.msgs[0].Remarks)
}

func TestCancelAfterIssueReleasesOutstanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.addBook(t, "D", 90, 8)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: d, Quantity: 4}))
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, out.Indent.ID, "")
	require.NoError(t, err)
	require.Equal(t, int64(8), f.available(t, d))
}

func TestCancelAfterPartialReturnRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 2}))
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)

	_, err = f.svc.Return(ctx, out.Indent.ID, []indentsvc.ReturnLine{
		{ItemID: out.Indent.Items[0].ID, Quantity: 1, Condition: model.ConditionGood},
	})
	require.NoError(t, err)
	availBefore := f.available(t, b)

	_, err = f.svc.Cancel(ctx, out.Indent.ID, "too late")
	require.Equal(t, indentsvc.ErrInvalidTransition, indentsvc.Code(err))

	// State unchanged.
	got, err := f.svc.Get(ctx, out.Indent.ID)
	require.NoError(t, err)
	require.Equal(t, model.IndentPartiallyReturned, got.Status)
	require.Equal(t, availBefore, f.available(t, b))
}

func TestCancelTerminalStatesRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, out.Indent.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, out.Indent.ID, "again")
	require.Equal(t, indentsvc.ErrInvalidTransition, indentsvc.Code(err))
}

// --- concurrency ---

func TestConcurrentCreatesForLastCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 3)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 3}))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.Equal(t, indentsvc.ErrNoStock, indentsvc.Code(err))
			lost++
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)
	require.Equal(t, int64(0), f.available(t, b))
}

// --- payment ---

func TestOverpaymentClampAtCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 250, 10)

	req := createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 2})
	req.PaidAmount = 700

	out, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	require.True(t, out.OverpaymentWarning)
	require.Equal(t, 500.0, out.Indent.PaidAmount)
	require.Equal(t, 0.0, out.Indent.BalanceAmount)
	require.Equal(t, model.PaymentPaid, out.Indent.PaymentStatus)
}

func TestRecordPaymentProgression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 250, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 2}))
	require.NoError(t, err)

	res, err := f.svc.RecordPayment(ctx, out.Indent.ID, 200)
	require.NoError(t, err)
	require.Equal(t, model.PaymentPartial, res.Indent.PaymentStatus)
	require.Equal(t, 300.0, res.Indent.BalanceAmount)

	res, err = f.svc.RecordPayment(ctx, out.Indent.ID, 400)
	require.NoError(t, err)
	require.True(t, res.OverpaymentWarning)
	require.Equal(t, model.PaymentPaid, res.Indent.PaymentStatus)
	require.Equal(t, 500.0, res.Indent.PaidAmount)
	require.Equal(t, 0.0, res.Indent.BalanceAmount)

	_, err = f.svc.RecordPayment(ctx, out.Indent.ID, 0)
	require.Equal(t, indentsvc.ErrInvalidAmount, indentsvc.Code(err))
}

func TestRecordPaymentOnCancelledRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "B", 100, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, out.Indent.ID, "")
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, out.Indent.ID, 50)
	require.Equal(t, indentsvc.ErrInvalidTransition, indentsvc.Code(err))
}

// --- snapshot ---

func TestSnapshotForReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "MATH-7", 150, 10)

	out, err := f.svc.Create(ctx, createReq(1, indentsvc.CreateLine{TextbookID: b, Quantity: 2}))
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, out.Indent.ID)
	require.NoError(t, err)

	snap, err := f.svc.Snapshot(ctx, out.Indent.ID)
	require.NoError(t, err)
	require.Equal(t, out.Indent.ID, snap.IndentNo)
	require.Equal(t, "Asha Rao", snap.StudentName)
	require.Equal(t, "ADM-0042", snap.AdmissionNo)
	require.Len(t, snap.Lines, 1)
	require.Equal(t, "MATH-7", snap.Lines[0].BookCode)
	require.Equal(t, 300.0, snap.Lines[0].Subtotal)
	require.Equal(t, 300.0, snap.TotalAmount)
	require.Equal(t, model.IndentIssued, snap.Status)
	require.NotNil(t, snap.IssueDate)
}

func TestGetUnknownIndent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), 12345)
	require.Equal(t, indentsvc.ErrNotFound, indentsvc.Code(err))
}
