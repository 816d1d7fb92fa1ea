package notifyrepo

import "context"

// Message is the finalized-indent summary handed to the notification
// gateway. The gateway renders and delivers; it never mutates indent state.
type Message struct {
	Event       string  `json:"event"` // INDENT_ISSUED | INDENT_CANCELLED
	IndentNo    int64   `json:"indent_no"`
	StudentName string  `json:"student_name"`
	AdmissionNo string  `json:"admission_no"`
	ClassName   string  `json:"class_name"`
	TotalAmount float64 `json:"total_amount"`
	Balance     float64 `json:"balance"`
	Remarks     string  `json:"remarks,omitempty"`
}

type Repo interface {
	Send(ctx context.Context, m Message) error
}
