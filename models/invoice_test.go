package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoTransition(t *testing.T) {
	cases := []struct {
		from        InvoiceStatus
		paid, total float64
		want        InvoiceStatus
	}{
		{StatusPending, 0, 100, StatusPending},
		{StatusPending, 50, 100, StatusPartial},
		{StatusPending, 100, 100, StatusPaid},
		{StatusPartial, 99.99, 100, StatusPartial},
		{StatusPartial, 100, 100, StatusPaid},
		{StatusPaid, 100, 100, StatusPaid},
		{StatusRefunded, 100, 100, StatusRefunded},
		{StatusCancelled, 10, 100, StatusCancelled},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.AutoTransition(tc.paid, tc.total), "%s paid=%v total=%v", tc.from, tc.paid, tc.total)
	}
}

func TestAutoTransition_FloatNoise(t *testing.T) {
	// 0.1 + 0.2 is not exactly 0.3 in binary floating point.
	assert.Equal(t, StatusPaid, StatusPartial.AutoTransition(0.1+0.2, 0.3))
}

func TestReconcile(t *testing.T) {
	assert.Equal(t, StatusPartial, StatusPaid.Reconcile(100, 150))
	assert.Equal(t, StatusPaid, StatusPartial.Reconcile(100, 100))
	assert.Equal(t, StatusCancelled, StatusCancelled.Reconcile(0, 100))
	assert.Equal(t, StatusRefunded, StatusRefunded.Reconcile(100, 100))
}

func TestOverride(t *testing.T) {
	got, err := StatusPaid.Override(StatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, got)

	got, err = StatusCancelled.Override(StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got)

	got, err = StatusPending.Override("archived")
	require.Error(t, err)
	assert.Equal(t, StatusPending, got)
}

func TestParseInvoiceStatus(t *testing.T) {
	s, err := ParseInvoiceStatus("partial")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, s)

	_, err = ParseInvoiceStatus("draft")
	assert.Error(t, err)
}

func TestRemainingAndReferences(t *testing.T) {
	inv := &Invoice{
		Total:      110,
		PaidAmount: 33.33,
		Payments:   []Payment{{ID: "1", Amount: 33.33, Reference: "pi_123"}},
	}
	assert.Equal(t, 76.67, inv.Remaining())
	assert.True(t, inv.HasPaymentReference("pi_123"))
	assert.False(t, inv.HasPaymentReference("pi_456"))
	assert.False(t, inv.HasPaymentReference(""))
}
