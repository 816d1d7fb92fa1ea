// model/indent.go
package model

import "time"

type IndentStatus string

const (
	IndentPending           IndentStatus = "PENDING"
	IndentIssued            IndentStatus = "ISSUED"
	IndentPartiallyReturned IndentStatus = "PARTIALLY_RETURNED"
	IndentReturned          IndentStatus = "RETURNED"
	IndentCancelled         IndentStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

type ItemCondition string

const (
	ConditionGood    ItemCondition = "GOOD"
	ConditionFair    ItemCondition = "FAIR"
	ConditionDamaged ItemCondition = "DAMAGED"
	ConditionLost    ItemCondition = "LOST"
)

// Reissuable reports whether a returned unit in this condition goes back
// into the available pool. Damaged and lost units are written off instead.
func (c ItemCondition) Reissuable() bool {
	return c == ConditionGood || c == ConditionFair
}

var conditionRank = map[ItemCondition]int{
	ConditionGood:    0,
	ConditionFair:    1,
	ConditionDamaged: 2,
	ConditionLost:    3,
}

// Worse returns the more severe of two conditions.
func (c ItemCondition) Worse(o ItemCondition) ItemCondition {
	if conditionRank[o] > conditionRank[c] {
		return o
	}
	return c
}

type ItemStatus string

const (
	ItemIssued            ItemStatus = "ISSUED"
	ItemPartiallyReturned ItemStatus = "PARTIALLY_RETURNED"
	ItemReturned          ItemStatus = "RETURNED"
	ItemDamaged           ItemStatus = "DAMAGED"
	ItemLost              ItemStatus = "LOST"
)

type IndentItem struct {
	ID            int64         `json:"id"`
	IndentID      int64         `json:"indent_id"`
	TextbookID    int64         `json:"textbook_id"`
	BookCode      string        `json:"book_code"`
	Title         string        `json:"title"`
	UnitPrice     float64       `json:"unit_price"` // snapshot at creation, never re-read
	Quantity      int64         `json:"quantity"`
	ReturnedQty   int64         `json:"returned_qty"`
	WrittenOffQty int64         `json:"written_off_qty"`
	Condition     ItemCondition `json:"condition"`
}

// Outstanding is the quantity still held by the student and still reserved.
func (it IndentItem) Outstanding() int64 { return it.Quantity - it.ReturnedQty }

func (it IndentItem) Subtotal() float64 { return it.UnitPrice * float64(it.Quantity) }

// Status is derived from quantities; it is never stored independently.
func (it IndentItem) Status() ItemStatus {
	switch {
	case it.ReturnedQty == 0:
		return ItemIssued
	case it.ReturnedQty < it.Quantity:
		return ItemPartiallyReturned
	case it.WrittenOffQty == it.Quantity:
		if it.Condition == ConditionLost {
			return ItemLost
		}
		return ItemDamaged
	default:
		return ItemReturned
	}
}

type Indent struct {
	ID           int64  `json:"indent_no"`
	StudentID    int64  `json:"student_id"`
	StudentName  string `json:"student_name"`
	AdmissionNo  string `json:"admission_no"`
	ClassName    string `json:"class_name"`
	BranchID     int64  `json:"branch_id"`
	AcademicYear string `json:"academic_year"`

	Items []IndentItem `json:"items"`

	TotalAmount   float64       `json:"total_amount"`
	PaidAmount    float64       `json:"paid_amount"`
	BalanceAmount float64       `json:"balance_amount"` // total - paid, recomputed
	PaymentMethod string        `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	Status         IndentStatus `json:"status"`
	IssueDate      *time.Time   `json:"issue_date,omitempty"`
	ExpectedReturn *time.Time   `json:"expected_return,omitempty"`
	Remarks        string       `json:"remarks,omitempty"`
	CancelReason   string       `json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (in *Indent) AnyReturned() bool {
	for _, it := range in.Items {
		if it.ReturnedQty > 0 {
			return true
		}
	}
	return false
}

func (in *Indent) AllReturned() bool {
	for _, it := range in.Items {
		if it.ReturnedQty < it.Quantity {
			return false
		}
	}
	return true
}

// Item finds a line by its id, or nil.
func (in *Indent) Item(itemID int64) *IndentItem {
	for i := range in.Items {
		if in.Items[i].ID == itemID {
			return &in.Items[i]
		}
	}
	return nil
}
