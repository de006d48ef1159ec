package debtors

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildReceipt(t *testing.T) {
	txn := &Transaction{
		ID:               42,
		CustomerName:     "Mang Tomas",
		Amount:           150,
		Method:           PaymentGCash,
		RemainingBalance: 50,
		IsSettled:        false,
		CreatedAt:        time.Date(2026, time.May, 4, 9, 30, 0, 0, time.UTC),
	}

	rc := BuildReceipt(txn)
	require.Equal(t, int64(42), rc.TransactionID)
	require.Equal(t, "Mang Tomas", rc.CustomerName)
	require.Equal(t, "GCash", rc.PaymentMethod)
	require.False(t, rc.FullySettled)
	require.Contains(t, rc.AmountPaid, "150")
	require.Contains(t, rc.RemainingBalance, "50")
	require.Equal(t, "2026-05-04T09:30:00Z", rc.Date)
}

func TestMethodLabel(t *testing.T) {
	require.Equal(t, "Cash", methodLabel(PaymentCash))
	require.Equal(t, "GCash", methodLabel(PaymentGCash))
	require.Equal(t, "Bank Transfer", methodLabel(PaymentBankTransfer))
}

func TestRenderReceipt(t *testing.T) {
	txn := &Transaction{
		ID:           7,
		CustomerName: "Aling Nena",
		Amount:       200,
		Method:       PaymentCash,
		IsSettled:    true,
		CreatedAt:    time.Now(),
	}
	out := RenderReceipt(BuildReceipt(txn))

	require.True(t, strings.HasPrefix(out, "Payment Receipt #7\n"))
	require.Contains(t, out, "Customer: Aling Nena")
	require.Contains(t, out, "via Cash")
	require.Contains(t, out, "Account fully settled")
}
