// Package payment derives payment state from amounts. It is pure: status
// and balance are recomputed from (total, paid), never read back from
// storage as ground truth.
package payment

import "textbookindent/model"

type Result struct {
	Paid    float64
	Balance float64
	Status  model.PaymentStatus

	// Overpaid flags that the caller handed in more than the total. The
	// operation still succeeds with clamped accounting.
	Overpaid bool
}

func Reconcile(total, paid float64) Result {
	res := Result{Paid: paid}
	if paid > total {
		res.Paid = total
		res.Overpaid = true
	}
	res.Balance = total - res.Paid

	switch {
	case res.Paid >= total:
		res.Status = model.PaymentPaid
	case res.Paid > 0:
		res.Status = model.PaymentPartial
	default:
		res.Status = model.PaymentPending
	}
	return res
}
