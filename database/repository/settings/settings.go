package settingsRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"invoicely/database"
	"invoicely/models"
)

type SettingsRepository interface {
	// Get returns (nil, nil) when the user never saved settings.
	Get(ctx context.Context, userID string) (*models.Settings, error)
	Upsert(ctx context.Context, s *models.Settings) error
	SetLogo(ctx context.Context, userID, url, publicID string) error
}

type PostgresSettingsRepo struct {
	db database.DBTX
}

func NewPostgresSettingsRepo(db database.DBTX) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

func (r *PostgresSettingsRepo) Get(ctx context.Context, userID string) (*models.Settings, error) {
	query := `SELECT user_id, company_name, company_email, company_phone, company_address, tax_id,
			default_currency, default_tax_rate, payment_terms_days, invoice_prefix, language,
			logo_url, logo_public_id, updated_at
		FROM user_settings WHERE user_id = $1`
	var s models.Settings
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.CompanyName, &s.CompanyEmail, &s.CompanyPhone, &s.CompanyAddress, &s.TaxID,
		&s.DefaultCurrency, &s.DefaultTaxRate, &s.PaymentTermsDays, &s.InvoicePrefix, &s.Language,
		&s.LogoURL, &s.LogoPublicID, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &s, nil
}

// Upsert writes every editable field. The logo is managed by SetLogo.
func (r *PostgresSettingsRepo) Upsert(ctx context.Context, s *models.Settings) error {
	s.UpdatedAt = time.Now().UTC()
	query := `INSERT INTO user_settings (user_id, company_name, company_email, company_phone, company_address,
			tax_id, default_currency, default_tax_rate, payment_terms_days, invoice_prefix, language, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			company_email = EXCLUDED.company_email,
			company_phone = EXCLUDED.company_phone,
			company_address = EXCLUDED.company_address,
			tax_id = EXCLUDED.tax_id,
			default_currency = EXCLUDED.default_currency,
			default_tax_rate = EXCLUDED.default_tax_rate,
			payment_terms_days = EXCLUDED.payment_terms_days,
			invoice_prefix = EXCLUDED.invoice_prefix,
			language = EXCLUDED.language,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.CompanyName, s.CompanyEmail, s.CompanyPhone, s.CompanyAddress, s.TaxID,
		s.DefaultCurrency, s.DefaultTaxRate, s.PaymentTermsDays, s.InvoicePrefix, s.Language, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (r *PostgresSettingsRepo) SetLogo(ctx context.Context, userID, url, publicID string) error {
	query := `INSERT INTO user_settings (user_id, logo_url, logo_public_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			logo_url = EXCLUDED.logo_url,
			logo_public_id = EXCLUDED.logo_public_id,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, userID, url, publicID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save logo: %w", err)
	}
	return nil
}
