package invoiceRepo

import (
	"context"
	"errors"

	"invoicely/models"
)

// ErrNumberTaken is returned by Create when the owner already has an
// invoice with the same number.
var ErrNumberTaken = errors.New("invoice number already in use")

// InvoiceRepository is owner-scoped. Get methods return (nil, nil) when the
// invoice does not exist or belongs to someone else.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, userID, id string) (*models.Invoice, error)
	// GetForUpdate locks the invoice row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, userID, id string) (*models.Invoice, error)
	List(ctx context.Context, userID string, filter models.InvoiceFilter) ([]models.Invoice, error)
	// Numbers returns the owner's invoice numbers that start with prefix-.
	Numbers(ctx context.Context, userID, prefix string) ([]string, error)
	Update(ctx context.Context, inv *models.Invoice) (bool, error)
	SaveSettlement(ctx context.Context, inv *models.Invoice) error
	UpdateStatus(ctx context.Context, userID, id string, status models.InvoiceStatus) (bool, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}
