package invoice

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"invoicely/database"
	contactRepo "invoicely/database/repository/contact"
	invoiceRepo "invoicely/database/repository/invoice"
	settingsRepo "invoicely/database/repository/settings"
	"invoicely/models"
	"invoicely/services/audit"
)

// InvoiceService is owner-scoped: every call takes the owning user ID.
type InvoiceService interface {
	Create(ctx context.Context, userID string, in models.InvoiceInput) (*models.Invoice, error)
	Get(ctx context.Context, userID, id string) (*models.Invoice, error)
	List(ctx context.Context, userID string, filter models.InvoiceFilter) ([]models.Invoice, error)
	Update(ctx context.Context, userID, id string, in models.InvoiceInput) (*models.Invoice, error)
	Delete(ctx context.Context, userID, id string) error
	SetStatus(ctx context.Context, userID, id, status string) (*models.Invoice, error)
	// RecordPayment applies a payment under a row lock on the invoice.
	RecordPayment(ctx context.Context, userID string, in models.PaymentInput) (*models.PaymentReceipt, error)
	Payments(ctx context.Context, userID, invoiceID string) ([]models.Payment, error)
}

// DefaultInvoiceService is the production implementation. Repos builds the
// invoice repository on either the pool or a transaction.
type DefaultInvoiceService struct {
	DB              *sql.DB
	Repos           func(database.DBTX) invoiceRepo.InvoiceRepository
	Contacts        contactRepo.ContactRepository
	Settings        settingsRepo.SettingsRepository
	Audit           audit.AuditService
	Logger          *zap.Logger
	DefaultCurrency string
	Now             func() time.Time
}

func (s *DefaultInvoiceService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultInvoiceService) repo() invoiceRepo.InvoiceRepository {
	return s.Repos(s.DB)
}
