package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

// IntentRequest describes a PaymentIntent in the currency's minor units.
type IntentRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Gateway is the part of Stripe the billing service talks to.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error)
	ParseEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeGateway uses the package-level stripe.Key set at startup.
type StripeGateway struct {
	WebhookSecret string
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func (g *StripeGateway) ParseEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, g.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// Stripe amounts for these currencies are whole units.
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true, "KRW": true,
	"MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true, "VUV": true, "XAF": true,
	"XOF": true, "XPF": true,
}

// ToMinor converts cents to the currency's Stripe minor units.
func ToMinor(cents int64, currency string) int64 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return (cents + 50) / 100
	}
	return cents
}

// FromMinor converts Stripe minor units back to an amount.
func FromMinor(minor int64, currency string) float64 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return float64(minor)
	}
	return float64(minor) / 100
}
