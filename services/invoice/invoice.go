package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invoicely/database"
	invoiceRepo "invoicely/database/repository/invoice"
	"invoicely/models"
	"invoicely/services/ledger"
	"invoicely/utils"
)

// maxNumberRetries bounds how often Create regenerates a number that
// collided with a concurrent insert.
const maxNumberRetries = 3

var (
	errInvoiceNotFound = utils.NewError(utils.ErrNotFound, "Invoice not found")
	errContactNotFound = utils.NewValidationError("contact_id", "Client not found")
	errDiscountTooHigh = utils.NewValidationError("discount_value", "Discount cannot exceed the subtotal")
	errTotalTooLarge   = utils.NewValidationError("items", "Invoice total is too large")
	errBelowPaid       = utils.NewError(utils.ErrBusinessRule, "Invoice total cannot be less than the amount already paid")
)

func (s *DefaultInvoiceService) Create(ctx context.Context, userID string, in models.InvoiceInput) (*models.Invoice, error) {
	now := s.now().UTC()
	issue, due, err := validateInput(&in, today(now))
	if err != nil {
		return nil, err
	}
	contactID, err := s.checkContact(ctx, userID, in.ContactID)
	if err != nil {
		return nil, err
	}

	settings, err := s.Settings.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		settings = models.DefaultSettings(userID, s.DefaultCurrency)
	}
	if in.Currency == "" {
		in.Currency = settings.DefaultCurrency
	}
	if in.Currency == "" {
		in.Currency = s.DefaultCurrency
	}
	if due == nil && settings.PaymentTermsDays > 0 {
		d := issue.AddDate(0, 0, settings.PaymentTermsDays)
		due = &d
	}

	inv := &models.Invoice{
		ID:            uuid.New().String(),
		UserID:        userID,
		ContactID:     contactID,
		Currency:      in.Currency,
		Items:         in.Items,
		TaxRate:       in.TaxRate,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		Status:        models.StatusPending,
		Payments:      []models.Payment{},
		Notes:         strings.TrimSpace(in.Notes),
		IssueDate:     issue,
		DueDate:       due,
	}
	ledger.ApplyTotals(inv)
	if err := checkTotals(inv); err != nil {
		return nil, err
	}

	prefix := settings.InvoicePrefix
	if prefix == "" {
		prefix = ledger.DefaultPrefix
	}
	repo := s.repo()
	for attempt := 0; ; attempt++ {
		prior, err := repo.Numbers(ctx, userID, prefix)
		if err != nil {
			s.Logger.Warn("Invoice number lookup failed, using fallback", zap.String("userID", userID), zap.Error(err))
			prior = nil
		}
		inv.InvoiceNumber = ledger.NextInvoiceNumber(prefix, prior, s.now())

		err = repo.Create(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, invoiceRepo.ErrNumberTaken) {
			return nil, fmt.Errorf("failed to create invoice: %w", err)
		}
		if attempt == maxNumberRetries {
			return nil, utils.NewError(utils.ErrConflict, "Could not allocate an invoice number, please retry")
		}
		s.Logger.Info("Invoice number collided, retrying",
			zap.String("number", inv.InvoiceNumber), zap.Int("attempt", attempt+1))
	}

	s.Audit.Record(ctx, models.AuditEvent{
		UserID: userID, Action: models.AuditInvoiceCreate, EntityType: "invoice", EntityID: inv.ID,
		Details: map[string]string{"number": inv.InvoiceNumber},
	})
	return inv, nil
}

func (s *DefaultInvoiceService) Get(ctx context.Context, userID, id string) (*models.Invoice, error) {
	inv, err := s.repo().Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if inv == nil {
		return nil, errInvoiceNotFound
	}
	return inv, nil
}

func (s *DefaultInvoiceService) List(ctx context.Context, userID string, filter models.InvoiceFilter) ([]models.Invoice, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, utils.NewValidationError("status", "Invalid invoice status")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	invoices, err := s.repo().List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// Update replaces the editable fields and recomputes the totals. The new
// total may not drop below what was already paid.
func (s *DefaultInvoiceService) Update(ctx context.Context, userID, id string, in models.InvoiceInput) (*models.Invoice, error) {
	now := s.now().UTC()
	issue, due, err := validateInput(&in, today(now))
	if err != nil {
		return nil, err
	}
	contactID, err := s.checkContact(ctx, userID, in.ContactID)
	if err != nil {
		return nil, err
	}

	var inv *models.Invoice
	err = database.WithTx(ctx, s.DB, func(ctx context.Context, tx database.DBTX) error {
		repo := s.Repos(tx)
		var err error
		inv, err = repo.GetForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return errInvoiceNotFound
		}

		inv.ContactID = contactID
		if in.Currency != "" {
			inv.Currency = in.Currency
		}
		inv.Items = in.Items
		inv.TaxRate = in.TaxRate
		inv.DiscountType = in.DiscountType
		inv.DiscountValue = in.DiscountValue
		inv.Notes = strings.TrimSpace(in.Notes)
		if in.IssueDate != "" {
			inv.IssueDate = issue
		}
		if due != nil {
			inv.DueDate = due
		}
		if inv.DueDate != nil && inv.DueDate.Before(inv.IssueDate) {
			return utils.NewValidationError("due_date", "Due date cannot be before the issue date")
		}

		ledger.ApplyTotals(inv)
		if err := checkTotals(inv); err != nil {
			return err
		}
		if models.Cents(inv.Total) < models.Cents(inv.PaidAmount) {
			return errBelowPaid
		}
		inv.Status = inv.Status.Reconcile(inv.PaidAmount, inv.Total)

		ok, err := repo.Update(ctx, inv)
		if err != nil {
			return err
		}
		if !ok {
			return errInvoiceNotFound
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal("failed to update invoice", err)
	}

	s.Audit.Record(ctx, models.AuditEvent{
		UserID: userID, Action: models.AuditInvoiceUpdate, EntityType: "invoice", EntityID: inv.ID,
	})
	return inv, nil
}

func (s *DefaultInvoiceService) Delete(ctx context.Context, userID, id string) error {
	ok, err := s.repo().Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if !ok {
		return errInvoiceNotFound
	}
	s.Audit.Record(ctx, models.AuditEvent{
		UserID: userID, Action: models.AuditInvoiceDelete, EntityType: "invoice", EntityID: id,
	})
	return nil
}

// SetStatus is the manual override. Paid amount and payments stay as they are.
func (s *DefaultInvoiceService) SetStatus(ctx context.Context, userID, id, status string) (*models.Invoice, error) {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	previous := inv.Status
	if err := ledger.SetStatus(inv, models.InvoiceStatus(strings.ToLower(strings.TrimSpace(status)))); err != nil {
		return nil, err
	}

	ok, err := s.repo().UpdateStatus(ctx, userID, id, inv.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice status: %w", err)
	}
	if !ok {
		return nil, errInvoiceNotFound
	}

	s.Audit.Record(ctx, models.AuditEvent{
		UserID: userID, Action: models.AuditInvoiceStatus, EntityType: "invoice", EntityID: id,
		Details: map[string]string{"from": string(previous), "to": string(inv.Status)},
	})
	return inv, nil
}

func (s *DefaultInvoiceService) checkContact(ctx context.Context, userID string, contactID *string) (*string, error) {
	if contactID == nil || strings.TrimSpace(*contactID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*contactID)
	c, err := s.Contacts.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	if c == nil {
		return nil, errContactNotFound
	}
	return &id, nil
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// wrapInternal passes client-visible errors through and wraps the rest.
func wrapInternal(msg string, err error) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
