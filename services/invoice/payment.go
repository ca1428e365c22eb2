package invoice

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"invoicely/database"
	"invoicely/models"
	"invoicely/services/ledger"
	"invoicely/utils"
)

// ErrDuplicatePayment is returned when a payment with the same external
// reference was already recorded on the invoice.
var ErrDuplicatePayment = utils.NewError(utils.ErrConflict, "Payment was already recorded")

func (s *DefaultInvoiceService) RecordPayment(ctx context.Context, userID string, in models.PaymentInput) (*models.PaymentReceipt, error) {
	in.InvoiceID = strings.TrimSpace(in.InvoiceID)
	if in.InvoiceID == "" {
		return nil, utils.NewValidationError("invoice_id", "Invoice ID is required")
	}

	var receipt *models.PaymentReceipt
	err := database.WithTx(ctx, s.DB, func(ctx context.Context, tx database.DBTX) error {
		repo := s.Repos(tx)

		// Locked until commit: concurrent payments on the same invoice queue here.
		inv, err := repo.GetForUpdate(ctx, userID, in.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return errInvoiceNotFound
		}
		if inv.HasPaymentReference(in.Reference) {
			return ErrDuplicatePayment
		}

		receipt, err = ledger.RecordPayment(inv, in, s.now().UTC())
		if err != nil {
			return err
		}
		return repo.SaveSettlement(ctx, inv)
	})
	if err != nil {
		return nil, wrapInternal("failed to record payment", err)
	}

	s.Logger.Info("Payment recorded",
		zap.String("invoiceID", in.InvoiceID),
		zap.Float64("amount", receipt.Payment.Amount),
		zap.String("status", string(receipt.Invoice.Status)),
	)
	s.Audit.Record(ctx, models.AuditEvent{
		UserID: userID, Action: models.AuditPayment, EntityType: "invoice", EntityID: in.InvoiceID,
		Details: map[string]string{
			"amount": fmt.Sprintf("%.2f", receipt.Payment.Amount),
			"method": receipt.Payment.Method,
		},
	})
	return receipt, nil
}

func (s *DefaultInvoiceService) Payments(ctx context.Context, userID, invoiceID string) ([]models.Payment, error) {
	inv, err := s.Get(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	return inv.Payments, nil
}
