package textbook

type CreateTextbookReq struct {
	BranchID     int64   `json:"branch_id" validate:"required,gt=0"`
	AcademicYear string  `json:"academic_year" validate:"required"`
	BookCode     string  `json:"book_code" validate:"required"`
	Title        string  `json:"title" validate:"required"`
	Subject      string  `json:"subject"`
	Publisher    string  `json:"publisher"`
	UnitPrice    float64 `json:"unit_price" validate:"gte=0"`
	TotalQty     int64   `json:"total_qty" validate:"gte=0"`
}

type AddCopiesReq struct {
	Count int64 `json:"count" validate:"required,gt=0"`
}
