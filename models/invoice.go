package models

import (
	"fmt"
	"math"
	"time"
)

// InvoiceStatus is the settlement state of an invoice.
//
// pending, partial and paid are derived from the paid amount. refunded and
// cancelled are only ever set by an explicit override and are never left
// by the automatic path.
type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "pending"
	StatusPartial   InvoiceStatus = "partial"
	StatusPaid      InvoiceStatus = "paid"
	StatusRefunded  InvoiceStatus = "refunded"
	StatusCancelled InvoiceStatus = "cancelled"
)

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	status := InvoiceStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
	return status, nil
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// Sticky reports whether the status was set manually and must survive
// further payments.
func (s InvoiceStatus) Sticky() bool {
	return s == StatusRefunded || s == StatusCancelled
}

// DeriveStatus maps a paid amount to pending, partial or paid.
func DeriveStatus(paid, total float64) InvoiceStatus {
	switch {
	case Cents(paid) >= Cents(total):
		return StatusPaid
	case Cents(paid) > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// AutoTransition is the status after a payment. Only pending and partial
// move; every other status is returned unchanged.
func (s InvoiceStatus) AutoTransition(paid, total float64) InvoiceStatus {
	if s != StatusPending && s != StatusPartial {
		return s
	}
	return DeriveStatus(paid, total)
}

// Reconcile is the status after an edit changed the total. Like
// AutoTransition but a paid invoice whose total grew drops back to partial.
func (s InvoiceStatus) Reconcile(paid, total float64) InvoiceStatus {
	if s.Sticky() {
		return s
	}
	return DeriveStatus(paid, total)
}

// Override is the manual transition: any valid status may be set.
func (s InvoiceStatus) Override(to InvoiceStatus) (InvoiceStatus, error) {
	if !to.Valid() {
		return s, fmt.Errorf("unknown invoice status %q", to)
	}
	return to, nil
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (d DiscountType) Valid() bool {
	return d == DiscountPercentage || d == DiscountFixed
}

// LineItem is one billed line. Amount is quantity × unit price.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
	StockItemID string  `json:"stock_item_id,omitempty"`
}

// Payment is an entry in an invoice's payment history. Payments are never
// edited or removed once recorded.
type Payment struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Date      string    `json:"date"`
	Method    string    `json:"method"`
	Note      string    `json:"note,omitempty"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Invoice struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	ContactID      *string       `json:"contact_id"`
	InvoiceNumber  string        `json:"invoice_number"`
	Currency       string        `json:"currency"`
	Items          []LineItem    `json:"items"`
	Subtotal       float64       `json:"subtotal"`
	TaxRate        float64       `json:"tax_rate"`
	TaxAmount      float64       `json:"tax_amount"`
	DiscountType   DiscountType  `json:"discount_type"`
	DiscountValue  float64       `json:"discount_value"`
	DiscountAmount float64       `json:"discount_amount"`
	Total          float64       `json:"total"`
	PaidAmount     float64       `json:"paid_amount"`
	Status         InvoiceStatus `json:"status"`
	Payments       []Payment     `json:"payments"`
	Notes          string        `json:"notes"`
	IssueDate      time.Time     `json:"issue_date"`
	DueDate        *time.Time    `json:"due_date"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Remaining is the unpaid balance, rounded to cents.
func (inv *Invoice) Remaining() float64 {
	return FromCents(Cents(inv.Total) - Cents(inv.PaidAmount))
}

// HasPaymentReference reports whether a payment with the external
// reference was already recorded.
func (inv *Invoice) HasPaymentReference(ref string) bool {
	if ref == "" {
		return false
	}
	for _, p := range inv.Payments {
		if p.Reference == ref {
			return true
		}
	}
	return false
}

// InvoiceInput is the body of create and update requests.
type InvoiceInput struct {
	ContactID     *string      `json:"contact_id"`
	Currency      string       `json:"currency"`
	Items         []LineItem   `json:"items"`
	TaxRate       float64      `json:"tax_rate"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	Notes         string       `json:"notes"`
	IssueDate     string       `json:"issue_date"`
	DueDate       string       `json:"due_date"`
}

type InvoiceFilter struct {
	Status    InvoiceStatus
	ContactID string
	Search    string
}

// PaymentInput is a request to record a payment.
type PaymentInput struct {
	InvoiceID string  `json:"invoice_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Note      string  `json:"note"`
	Reference string  `json:"reference,omitempty"`
}

// PaymentReceipt summarises a recorded payment.
type PaymentReceipt struct {
	Payment   Payment  `json:"payment"`
	Invoice   *Invoice `json:"invoice"`
	TotalPaid float64  `json:"total_paid"`
	Remaining float64  `json:"remaining"`
}

// MaxAmount is the largest money value the NUMERIC(14,2) columns hold.
// Anything bigger is rejected before it reaches the ledger.
const MaxAmount = 9_999_999_999.99

// Cents converts an amount to integer minor units.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func FromCents(c int64) float64 {
	return float64(c) / 100
}

// RoundMoney rounds to two decimals.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
