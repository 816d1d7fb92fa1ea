package payment

import (
	"testing"

	"textbookindent/model"

	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	cases := []struct {
		name        string
		total, paid float64
		wantPaid    float64
		wantBalance float64
		wantStatus  model.PaymentStatus
		wantOver    bool
	}{
		{"nothing paid", 500, 0, 0, 500, model.PaymentPending, false},
		{"partial", 500, 200, 200, 300, model.PaymentPartial, false},
		{"exact", 500, 500, 500, 0, model.PaymentPaid, false},
		{"overpaid clamps", 500, 700, 500, 0, model.PaymentPaid, true},
		{"zero total", 0, 0, 0, 0, model.PaymentPaid, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Reconcile(tc.total, tc.paid)
			require.Equal(t, tc.wantPaid, res.Paid)
			require.Equal(t, tc.wantBalance, res.Balance)
			require.Equal(t, tc.wantStatus, res.Status)
			require.Equal(t, tc.wantOver, res.Overpaid)
		})
	}
}

func TestReconcileBalanceNeverNegative(t *testing.T) {
	for _, paid := range []float64{0, 100, 499.99, 500, 500.01, 10000} {
		res := Reconcile(500, paid)
		require.GreaterOrEqual(t, res.Balance, 0.0)
		require.Equal(t, 500-res.Paid, res.Balance)
	}
}
