// Package billing takes card payments for invoices through Stripe.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"invoicely/models"
	"invoicely/services/invoice"
	"invoicely/utils"
)

const (
	MethodStripe = "stripe"

	eventPaymentSucceeded = "payment_intent.succeeded"
)

var (
	ErrDisabled         = utils.NewError(utils.ErrUnavailable, "Online payments are not configured")
	ErrInvalidSignature = utils.NewError(utils.ErrValidation, "Invalid webhook signature")
	ErrNothingDue       = utils.NewError(utils.ErrBusinessRule, "Invoice has no outstanding balance")
	ErrNotPayable       = utils.NewError(utils.ErrBusinessRule, "Invoice is cancelled or refunded")
)

type BillingService interface {
	// CreatePaymentIntent charges the remaining balance of the invoice.
	CreatePaymentIntent(ctx context.Context, userID, invoiceID string) (*PaymentIntent, error)
	// HandleWebhook verifies and applies a Stripe event. Redeliveries of an
	// already recorded payment succeed without effect.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// DefaultBillingService is disabled when Gateway is nil.
type DefaultBillingService struct {
	Gateway  Gateway
	Invoices invoice.InvoiceService
	Logger   *zap.Logger
}

func NewBillingService(gateway Gateway, invoices invoice.InvoiceService, logger *zap.Logger) *DefaultBillingService {
	return &DefaultBillingService{Gateway: gateway, Invoices: invoices, Logger: logger}
}

func (s *DefaultBillingService) CreatePaymentIntent(ctx context.Context, userID, invoiceID string) (*PaymentIntent, error) {
	if s.Gateway == nil {
		return nil, ErrDisabled
	}
	inv, err := s.Invoices.Get(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status.Sticky() {
		return nil, ErrNotPayable
	}
	remaining := models.Cents(inv.Total) - models.Cents(inv.PaidAmount)
	if remaining <= 0 {
		return nil, ErrNothingDue
	}

	intent, err := s.Gateway.CreatePaymentIntent(ctx, IntentRequest{
		Amount:   ToMinor(remaining, inv.Currency),
		Currency: inv.Currency,
		Metadata: map[string]string{
			"invoice_id":     inv.ID,
			"user_id":        userID,
			"invoice_number": inv.InvoiceNumber,
		},
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Payment intent created",
		zap.String("invoiceID", inv.ID),
		zap.String("intentID", intent.ID),
		zap.Int64("amount", intent.Amount),
	)
	return intent, nil
}

func (s *DefaultBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.Gateway == nil {
		return ErrDisabled
	}
	event, err := s.Gateway.ParseEvent(payload, signature)
	if err != nil {
		s.Logger.Warn("Rejected webhook", zap.Error(err))
		return ErrInvalidSignature
	}
	if string(event.Type) != eventPaymentSucceeded {
		s.Logger.Debug("Ignoring webhook event", zap.String("type", string(event.Type)))
		return nil
	}
	if event.Data == nil {
		return fmt.Errorf("webhook %s has no data", event.ID)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("failed to decode payment intent: %w", err)
	}
	return s.settle(ctx, &pi)
}

func (s *DefaultBillingService) settle(ctx context.Context, pi *stripe.PaymentIntent) error {
	invoiceID, userID := pi.Metadata["invoice_id"], pi.Metadata["user_id"]
	if invoiceID == "" || userID == "" {
		// Not one of ours.
		s.Logger.Warn("Payment intent without invoice metadata", zap.String("intentID", pi.ID))
		return nil
	}
	minor := pi.AmountReceived
	if minor == 0 {
		minor = pi.Amount
	}

	_, err := s.Invoices.RecordPayment(ctx, userID, models.PaymentInput{
		InvoiceID: invoiceID,
		Amount:    FromMinor(minor, string(pi.Currency)),
		Method:    MethodStripe,
		Note:      "Stripe payment",
		Reference: pi.ID,
	})
	switch {
	case err == nil:
		s.Logger.Info("Stripe payment recorded", zap.String("invoiceID", invoiceID), zap.String("intentID", pi.ID))
		return nil
	case errors.Is(err, invoice.ErrDuplicatePayment):
		return nil
	case errors.Is(err, utils.ErrBusinessRule), errors.Is(err, utils.ErrValidation), errors.Is(err, utils.ErrNotFound):
		// Retrying cannot help; needs manual reconciliation.
		s.Logger.Error("Stripe payment could not be applied",
			zap.String("invoiceID", invoiceID), zap.String("intentID", pi.ID), zap.Error(err))
		return nil
	default:
		return err
	}
}
