package indent

import (
	"context"
	"time"

	"textbookindent/model"
)

// Snapshot is the read-only view of a finalized indent handed to receipt
// rendering and notification collaborators. It carries everything needed to
// render a receipt and nothing that lets a collaborator mutate state.
type Snapshot struct {
	IndentNo     int64  `json:"indent_no"`
	StudentName  string `json:"student_name"`
	AdmissionNo  string `json:"admission_no"`
	ClassName    string `json:"class_name"`
	AcademicYear string `json:"academic_year"`

	Lines []SnapshotLine `json:"lines"`

	TotalAmount   float64             `json:"total_amount"`
	PaidAmount    float64             `json:"paid_amount"`
	BalanceAmount float64             `json:"balance_amount"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`

	Status    model.IndentStatus `json:"status"`
	IssueDate *time.Time         `json:"issue_date,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type SnapshotLine struct {
	BookCode  string  `json:"book_code"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int64   `json:"quantity"`
	Returned  int64   `json:"returned_qty"`

	// WrittenOff is exposed so a policy layer can price loss/damage
	// penalties; this core does not post them to the balance.
	WrittenOff int64              `json:"written_off_qty"`
	Subtotal   float64            `json:"subtotal"`
	Status     model.ItemStatus   `json:"status"`
	Condition  model.ItemCondition `json:"condition"`
}

func (s *service) Snapshot(ctx context.Context, indentNo int64) (*Snapshot, error) {
	in, err := s.get(ctx, indentNo)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		IndentNo:      in.ID,
		StudentName:   in.StudentName,
		AdmissionNo:   in.AdmissionNo,
		ClassName:     in.ClassName,
		AcademicYear:  in.AcademicYear,
		TotalAmount:   in.TotalAmount,
		PaidAmount:    in.PaidAmount,
		BalanceAmount: in.BalanceAmount,
		PaymentStatus: in.PaymentStatus,
		Status:        in.Status,
		IssueDate:     in.IssueDate,
		CreatedAt:     in.CreatedAt,
	}
	for _, it := range in.Items {
		snap.Lines = append(snap.Lines, SnapshotLine{
			BookCode:   it.BookCode,
			Title:      it.Title,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			Returned:   it.ReturnedQty,
			WrittenOff: it.WrittenOffQty,
			Subtotal:   it.Subtotal(),
			Status:     it.Status(),
			Condition:  it.Condition,
		})
	}
	return snap, nil
}
