// model/textbook.go
package model

type Textbook struct {
	ID           int64   `json:"id"`
	BranchID     int64   `json:"branch_id"`
	AcademicYear string  `json:"academic_year"`
	BookCode     string  `json:"book_code"`
	Title        string  `json:"title"`
	Subject      string  `json:"subject"`
	Publisher    string  `json:"publisher"`
	UnitPrice    float64 `json:"unit_price"`
	TotalQty     int64   `json:"total_qty"`
	AvailableQty int64   `json:"available_qty"`
}

// IssuedQty is always derived, never stored.
func (t Textbook) IssuedQty() int64 { return t.TotalQty - t.AvailableQty }
