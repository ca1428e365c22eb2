package handlers

import (
	"invoicely/middleware"
	"invoicely/services/auth"
)

// HandlerBundle groups every endpoint handler plus what the routes need to
// build their middleware.
type HandlerBundle struct {
	AuthService  auth.AuthService
	GlobalLimit  *middleware.RateLimiter
	LoginLimit   *middleware.RateLimiter
	AllowOrigins []string

	Auth     *AuthHandler
	Contacts *ContactHandler
	Invoices *InvoiceHandler
	Settings *SettingsHandler
	Stock    *StockHandler
	Users    *UserHandler
	Currency *CurrencyHandler
	Activity *ActivityHandler
	Webhooks *WebhookHandler
	Health   *HealthHandler
}
