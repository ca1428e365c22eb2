// Package ledger holds the money rules of an invoice: totals, payments,
// status transitions and invoice numbering. It performs no I/O.
package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"invoicely/models"
	"invoicely/utils"
)

// DefaultPrefix is used when the owner has no invoice prefix configured.
const DefaultPrefix = "INV"

var (
	ErrNonPositiveAmount = utils.NewValidationError("amount", "Payment amount must be greater than zero")
	ErrExceedsBalance    = utils.NewError(utils.ErrBusinessRule, "Payment amount exceeds the remaining balance")
	ErrInvalidStatus     = utils.NewValidationError("status", "Invalid invoice status")
)

// Totals are the computed money fields of an invoice, rounded to cents.
type Totals struct {
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	Total          float64
}

// LineAmount is quantity × unit price rounded to cents.
func LineAmount(item models.LineItem) float64 {
	return models.RoundMoney(item.Quantity * item.UnitPrice)
}

// ComputeTotals applies the discount to the subtotal and the tax to what is
// left. Line amounts are summed in cents so item order never matters.
// Inputs are not validated here.
func ComputeTotals(items []models.LineItem, taxRate, discountValue float64, discountType models.DiscountType) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += models.Cents(item.Quantity * item.UnitPrice)
	}

	var discount int64
	if discountType == models.DiscountFixed {
		discount = models.Cents(discountValue)
	} else {
		discount = models.Cents(float64(subtotal) * discountValue / 100 / 100)
	}

	taxable := subtotal - discount
	tax := models.Cents(float64(taxable) * taxRate / 100 / 100)

	return Totals{
		Subtotal:       models.FromCents(subtotal),
		DiscountAmount: models.FromCents(discount),
		TaxAmount:      models.FromCents(tax),
		Total:          models.FromCents(taxable + tax),
	}
}

// ApplyTotals fills in every line amount and the money fields of inv.
func ApplyTotals(inv *models.Invoice) {
	if inv.DiscountType == "" {
		inv.DiscountType = models.DiscountPercentage
	}
	for i := range inv.Items {
		inv.Items[i].Amount = LineAmount(inv.Items[i])
	}
	t := ComputeTotals(inv.Items, inv.TaxRate, inv.DiscountValue, inv.DiscountType)
	inv.Subtotal = t.Subtotal
	inv.DiscountAmount = t.DiscountAmount
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
}

// RecordPayment appends a payment to inv and moves the paid amount and the
// status. On error inv is left untouched.
func RecordPayment(inv *models.Invoice, in models.PaymentInput, now time.Time) (*models.PaymentReceipt, error) {
	if in.Amount > models.MaxAmount {
		return nil, ErrExceedsBalance
	}
	amount := models.Cents(in.Amount)
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	paid := models.Cents(inv.PaidAmount)
	total := models.Cents(inv.Total)
	if amount > total-paid {
		return nil, ErrExceedsBalance
	}

	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = "cash"
	}
	payment := models.Payment{
		ID:        nextPaymentID(inv.Payments, now),
		Amount:    models.FromCents(amount),
		Date:      now.Format("2006-01-02"),
		Method:    method,
		Note:      strings.TrimSpace(in.Note),
		Reference: in.Reference,
		CreatedAt: now,
	}

	inv.Payments = append(inv.Payments, payment)
	inv.PaidAmount = models.FromCents(paid + amount)
	inv.Status = inv.Status.AutoTransition(inv.PaidAmount, inv.Total)

	return &models.PaymentReceipt{
		Payment:   payment,
		Invoice:   inv,
		TotalPaid: inv.PaidAmount,
		Remaining: inv.Remaining(),
	}, nil
}

// nextPaymentID is the creation time in milliseconds, bumped past any id
// already used on the invoice.
func nextPaymentID(existing []models.Payment, now time.Time) string {
	id := now.UnixMilli()
	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		taken[p.ID] = true
	}
	for taken[strconv.FormatInt(id, 10)] {
		id++
	}
	return strconv.FormatInt(id, 10)
}

// SetStatus is the administrative override. Money fields are not touched.
func SetStatus(inv *models.Invoice, status models.InvoiceStatus) error {
	next, err := inv.Status.Override(status)
	if err != nil {
		return ErrInvalidStatus
	}
	inv.Status = next
	return nil
}

// NextInvoiceNumber returns PREFIX-YEAR-NNN where NNN follows the highest
// suffix among prior numbers of the same prefix. Without a usable prior
// number the suffix is derived from the clock.
func NextInvoiceNumber(prefix string, prior []string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-\d{4}-(\d+)$`)

	max, found := 0, false
	for _, n := range prior {
		m := pattern.FindStringSubmatch(n)
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !found || v > max {
			max, found = v, true
		}
	}

	if !found {
		return fmt.Sprintf("%s-%d-%06d", prefix, now.Year(), now.UnixMilli()%1_000_000)
	}
	return fmt.Sprintf("%s-%d-%03d", prefix, now.Year(), max+1)
}
