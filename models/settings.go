package models

import "time"

// Settings holds per-user company details and invoice defaults.
type Settings struct {
	UserID           string    `json:"user_id"`
	CompanyName      string    `json:"company_name"`
	CompanyEmail     string    `json:"company_email"`
	CompanyPhone     string    `json:"company_phone"`
	CompanyAddress   string    `json:"company_address"`
	TaxID            string    `json:"tax_id"`
	DefaultCurrency  string    `json:"default_currency"`
	DefaultTaxRate   float64   `json:"default_tax_rate"`
	PaymentTermsDays int       `json:"payment_terms_days"`
	InvoicePrefix    string    `json:"invoice_prefix"`
	Language         string    `json:"language"`
	LogoURL          string    `json:"logo_url"`
	LogoPublicID     string    `json:"-"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultSettings are returned for users who never saved settings.
func DefaultSettings(userID, currency string) *Settings {
	return &Settings{
		UserID:           userID,
		DefaultCurrency:  currency,
		PaymentTermsDays: 30,
		InvoicePrefix:    "INV",
		Language:         "en",
	}
}

type SettingsInput struct {
	CompanyName      string  `json:"company_name"`
	CompanyEmail     string  `json:"company_email"`
	CompanyPhone     string  `json:"company_phone"`
	CompanyAddress   string  `json:"company_address"`
	TaxID            string  `json:"tax_id"`
	DefaultCurrency  string  `json:"default_currency"`
	DefaultTaxRate   float64 `json:"default_tax_rate"`
	PaymentTermsDays int     `json:"payment_terms_days"`
	InvoicePrefix    string  `json:"invoice_prefix"`
	Language         string  `json:"language"`
}
