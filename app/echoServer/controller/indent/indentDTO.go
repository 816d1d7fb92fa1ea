package indent

import "time"

type CreateIndentReq struct {
	StudentID      int64      `json:"student_id" validate:"required,gt=0"`
	BranchID       int64      `json:"branch_id" validate:"required,gt=0"`
	AcademicYear   string     `json:"academic_year" validate:"required"`
	PaymentMethod  string     `json:"payment_method" validate:"required,oneof=CASH CARD ONLINE"`
	PaidAmount     float64    `json:"paid_amount" validate:"gte=0"`
	ExpectedReturn *time.Time `json:"expected_return,omitempty"`
	Remarks        string     `json:"remarks"`

	Items []CreateIndentItemReq `json:"items" validate:"required,min=1,dive"`
}

type CreateIndentItemReq struct {
	TextbookID int64 `json:"textbook_id" validate:"required,gt=0"`
	Quantity   int64 `json:"quantity" validate:"required,gt=0"`
}

type ReturnReq struct {
	Items []ReturnItemReq `json:"items" validate:"required,min=1,dive"`
}

type ReturnItemReq struct {
	ItemID    int64  `json:"item_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Condition string `json:"condition" validate:"required,oneof=GOOD FAIR DAMAGED LOST"`
}

type CancelReq struct {
	Reason string `json:"reason"`
}

type PaymentReq struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}
