package debtors

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	receiptPrinter = message.NewPrinter(language.English)
	peso           = currency.MustParseISO("PHP")
)

// FormatAmount renders a monetary value with the peso currency symbol.
func FormatAmount(v float64) string {
	return receiptPrinter.Sprintf("%v", currency.Symbol(peso.Amount(v)))
}

// Receipt is the printable summary handed back after a settlement.
type Receipt struct {
	TransactionID    int64  `json:"transaction_id"`
	CustomerName     string `json:"customer_name"`
	AmountPaid       string `json:"amount_paid"`
	PaymentMethod    string `json:"payment_method"`
	RemainingBalance string `json:"remaining_balance"`
	FullySettled     bool   `json:"fully_settled"`
	Date             string `json:"date"`
}

// BuildReceipt formats a settlement transaction for display.
func BuildReceipt(txn *Transaction) Receipt {
	return Receipt{
		TransactionID:    txn.ID,
		CustomerName:     txn.CustomerName,
		AmountPaid:       FormatAmount(txn.Amount),
		PaymentMethod:    methodLabel(txn.Method),
		RemainingBalance: FormatAmount(txn.RemainingBalance),
		FullySettled:     txn.IsSettled,
		Date:             txn.CreatedAt.Format(time.RFC3339),
	}
}

func methodLabel(m PaymentMethod) string {
	switch m {
	case PaymentGCash:
		return "GCash"
	case PaymentBankTransfer:
		return "Bank Transfer"
	case PaymentCash:
		return "Cash"
	}
	return string(m)
}

// RenderReceipt builds the plain-text form shown in the app's share sheet.
func RenderReceipt(rc Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment Receipt #%d\n", rc.TransactionID)
	fmt.Fprintf(&b, "Customer: %s\n", rc.CustomerName)
	fmt.Fprintf(&b, "Paid: %s via %s\n", rc.AmountPaid, rc.PaymentMethod)
	fmt.Fprintf(&b, "Remaining balance: %s\n", rc.RemainingBalance)
	if rc.FullySettled {
		b.WriteString("Account fully settled\n")
	}
	fmt.Fprintf(&b, "Date: %s\n", rc.Date)
	return b.String()
}
