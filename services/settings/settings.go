package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	settingsRepo "invoicely/database/repository/settings"
	"invoicely/models"
	"invoicely/services/storage"
	"invoicely/utils"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	prefixPattern   = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)
)

// SettingsService manages per-user company details and invoice defaults.
type SettingsService interface {
	// Get returns the saved settings or the defaults.
	Get(ctx context.Context, userID string) (*models.Settings, error)
	Update(ctx context.Context, userID string, in models.SettingsInput) (*models.Settings, error)
	UploadLogo(ctx context.Context, userID string, file io.Reader) (*models.Settings, error)
	RemoveLogo(ctx context.Context, userID string) (*models.Settings, error)
}

type DefaultSettingsService struct {
	Repo            settingsRepo.SettingsRepository
	Storage         storage.StorageService
	DefaultCurrency string
	Logger          *zap.Logger
}

func (s *DefaultSettingsService) Get(ctx context.Context, userID string) (*models.Settings, error) {
	st, err := s.Repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if st == nil {
		return models.DefaultSettings(userID, s.DefaultCurrency), nil
	}
	return st, nil
}

func (s *DefaultSettingsService) Update(ctx context.Context, userID string, in models.SettingsInput) (*models.Settings, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	st, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	st.CompanyName = strings.TrimSpace(in.CompanyName)
	st.CompanyEmail = strings.TrimSpace(in.CompanyEmail)
	st.CompanyPhone = strings.TrimSpace(in.CompanyPhone)
	st.CompanyAddress = strings.TrimSpace(in.CompanyAddress)
	st.TaxID = strings.TrimSpace(in.TaxID)
	st.DefaultCurrency = in.DefaultCurrency
	st.DefaultTaxRate = in.DefaultTaxRate
	st.PaymentTermsDays = in.PaymentTermsDays
	st.InvoicePrefix = in.InvoicePrefix
	st.Language = in.Language

	if err := s.Repo.Upsert(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return st, nil
}

func (s *DefaultSettingsService) UploadLogo(ctx context.Context, userID string, file io.Reader) (*models.Settings, error) {
	stored, err := s.Storage.Upload(ctx, file, "logo-"+userID)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return nil, utils.NewError(utils.ErrUnavailable, "Logo uploads are not enabled")
		}
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.Repo.SetLogo(ctx, userID, stored.URL, stored.PublicID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *DefaultSettingsService) RemoveLogo(ctx context.Context, userID string) (*models.Settings, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.LogoPublicID != "" {
		if err := s.Storage.Delete(ctx, st.LogoPublicID); err != nil && !errors.Is(err, storage.ErrDisabled) {
			s.Logger.Warn("Failed to delete stored logo", zap.String("publicID", st.LogoPublicID), zap.Error(err))
		}
	}
	if err := s.Repo.SetLogo(ctx, userID, "", ""); err != nil {
		return nil, err
	}
	st.LogoURL, st.LogoPublicID = "", ""
	return st, nil
}

func validate(in *models.SettingsInput) error {
	in.DefaultCurrency = strings.ToUpper(strings.TrimSpace(in.DefaultCurrency))
	in.InvoicePrefix = strings.TrimSpace(in.InvoicePrefix)
	in.Language = strings.TrimSpace(in.Language)
	if in.InvoicePrefix == "" {
		in.InvoicePrefix = "INV"
	}
	if in.Language == "" {
		in.Language = "en"
	}

	switch {
	case !currencyPattern.MatchString(in.DefaultCurrency):
		return utils.NewValidationError("default_currency", "Currency must be a 3-letter code")
	case in.DefaultTaxRate < 0 || in.DefaultTaxRate > 100:
		return utils.NewValidationError("default_tax_rate", "Tax rate must be between 0 and 100")
	case in.PaymentTermsDays < 0 || in.PaymentTermsDays > 365:
		return utils.NewValidationError("payment_terms_days", "Payment terms must be between 0 and 365 days")
	case !prefixPattern.MatchString(in.InvoicePrefix):
		return utils.NewValidationError("invoice_prefix", "Prefix must be 1 to 10 letters or digits")
	}
	return nil
}
