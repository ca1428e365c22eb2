package contact

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	contactRepo "invoicely/database/repository/contact"
	"invoicely/models"
	"invoicely/utils"
)

var errContactNotFound = utils.NewError(utils.ErrNotFound, "Client not found")

// ContactService manages the clients of one owner.
type ContactService interface {
	Create(ctx context.Context, userID string, in models.ContactInput) (*models.Contact, error)
	Get(ctx context.Context, userID, id string) (*models.Contact, error)
	List(ctx context.Context, userID, search string) ([]models.Contact, error)
	Update(ctx context.Context, userID, id string, in models.ContactInput) (*models.Contact, error)
	Delete(ctx context.Context, userID, id string) error
}

type DefaultContactService struct {
	Repo contactRepo.ContactRepository
}

func (s *DefaultContactService) Create(ctx context.Context, userID string, in models.ContactInput) (*models.Contact, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	c := &models.Contact{ID: uuid.New().String(), UserID: userID}
	apply(c, in)
	if err := s.Repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return c, nil
}

func (s *DefaultContactService) Get(ctx context.Context, userID, id string) (*models.Contact, error) {
	c, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	if c == nil {
		return nil, errContactNotFound
	}
	return c, nil
}

func (s *DefaultContactService) List(ctx context.Context, userID, search string) ([]models.Contact, error) {
	contacts, err := s.Repo.List(ctx, userID, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

func (s *DefaultContactService) Update(ctx context.Context, userID, id string, in models.ContactInput) (*models.Contact, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	apply(c, in)
	ok, err := s.Repo.Update(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	if !ok {
		return nil, errContactNotFound
	}
	return c, nil
}

// Delete removes the contact. Its invoices stay and lose the client link.
func (s *DefaultContactService) Delete(ctx context.Context, userID, id string) error {
	ok, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if !ok {
		return errContactNotFound
	}
	return nil
}

func normalize(in models.ContactInput) (models.ContactInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" {
		return in, utils.NewValidationError("name", "Name is required")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return in, utils.NewValidationError("email", "Email is not valid")
		}
	}
	return in, nil
}

func apply(c *models.Contact, in models.ContactInput) {
	c.Name = in.Name
	c.Email = in.Email
	c.Phone = strings.TrimSpace(in.Phone)
	c.Company = strings.TrimSpace(in.Company)
	c.Address = strings.TrimSpace(in.Address)
	c.City = strings.TrimSpace(in.City)
	c.Country = strings.TrimSpace(in.Country)
	c.TaxID = strings.TrimSpace(in.TaxID)
	c.Notes = in.Notes
}
