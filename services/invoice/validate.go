package invoice

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"invoicely/models"
	"invoicely/utils"
)

const dateLayout = "2006-01-02"

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// validateInput normalises in and checks every field that does not need
// the totals. Dates are returned parsed.
func validateInput(in *models.InvoiceInput, today time.Time) (issue time.Time, due *time.Time, err error) {
	if len(in.Items) == 0 {
		return issue, nil, utils.NewValidationError("items", "At least one line item is required")
	}
	for i := range in.Items {
		item := &in.Items[i]
		item.Description = strings.TrimSpace(item.Description)
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case item.Description == "":
			return issue, nil, utils.NewValidationError(field+".description", "Description is required")
		case item.Quantity <= 0:
			return issue, nil, utils.NewValidationError(field+".quantity", "Quantity must be greater than zero")
		case item.UnitPrice < 0:
			return issue, nil, utils.NewValidationError(field+".unit_price", "Unit price cannot be negative")
		case item.Quantity > models.MaxAmount, item.UnitPrice > models.MaxAmount,
			item.Quantity*item.UnitPrice > models.MaxAmount:
			return issue, nil, utils.NewValidationError(field, "Line amount is too large")
		}
	}

	if in.TaxRate < 0 || in.TaxRate > 100 {
		return issue, nil, utils.NewValidationError("tax_rate", "Tax rate must be between 0 and 100")
	}
	if in.DiscountType == "" {
		in.DiscountType = models.DiscountPercentage
	}
	if !in.DiscountType.Valid() {
		return issue, nil, utils.NewValidationError("discount_type", "Discount type must be percentage or fixed")
	}
	if in.DiscountValue < 0 {
		return issue, nil, utils.NewValidationError("discount_value", "Discount cannot be negative")
	}
	if in.DiscountValue > models.MaxAmount {
		return issue, nil, utils.NewValidationError("discount_value", "Discount is too large")
	}
	if in.DiscountType == models.DiscountPercentage && in.DiscountValue > 100 {
		return issue, nil, utils.NewValidationError("discount_value", "Percentage discount cannot exceed 100")
	}

	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency != "" && !currencyPattern.MatchString(in.Currency) {
		return issue, nil, utils.NewValidationError("currency", "Currency must be a 3-letter code")
	}

	issue = today
	if in.IssueDate != "" {
		issue, err = time.Parse(dateLayout, in.IssueDate)
		if err != nil {
			return issue, nil, utils.NewValidationError("issue_date", "Issue date must be YYYY-MM-DD")
		}
	}
	if in.DueDate != "" {
		d, err := time.Parse(dateLayout, in.DueDate)
		if err != nil {
			return issue, nil, utils.NewValidationError("due_date", "Due date must be YYYY-MM-DD")
		}
		if d.Before(issue) {
			return issue, nil, utils.NewValidationError("due_date", "Due date cannot be before the issue date")
		}
		due = &d
	}
	return issue, due, nil
}

// checkTotals runs on the computed money fields, once the totals exist.
func checkTotals(inv *models.Invoice) error {
	if inv.Subtotal > models.MaxAmount || inv.Total > models.MaxAmount {
		return errTotalTooLarge
	}
	if inv.DiscountAmount > inv.Subtotal {
		return errDiscountTooHigh
	}
	return nil
}
