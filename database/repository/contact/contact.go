package contactRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"invoicely/database"
	"invoicely/models"
)

// ContactRepository is owner-scoped: every method takes the owning user ID
// and never touches rows of another user.
type ContactRepository interface {
	Create(ctx context.Context, c *models.Contact) error
	Get(ctx context.Context, userID, id string) (*models.Contact, error)
	List(ctx context.Context, userID, search string) ([]models.Contact, error)
	Update(ctx context.Context, c *models.Contact) (bool, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

const contactColumns = `id, user_id, name, email, phone, company, address, city, country, tax_id, notes, created_at, updated_at`

type PostgresContactRepo struct {
	db database.DBTX
}

func NewPostgresContactRepo(db database.DBTX) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

func (r *PostgresContactRepo) Create(ctx context.Context, c *models.Contact) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	query := `INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Company, c.Address, c.City, c.Country, c.TaxID, c.Notes, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

func (r *PostgresContactRepo) Get(ctx context.Context, userID, id string) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *PostgresContactRepo) List(ctx context.Context, userID, search string) ([]models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`
	args := []any{userID}
	if search != "" {
		query += ` AND (name ILIKE $2 OR email ILIKE $2 OR company ILIKE $2)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

func (r *PostgresContactRepo) Update(ctx context.Context, c *models.Contact) (bool, error) {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE contacts
		SET name = $3, email = $4, phone = $5, company = $6, address = $7, city = $8,
			country = $9, tax_id = $10, notes = $11, updated_at = $12
		WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Company, c.Address, c.City, c.Country, c.TaxID, c.Notes, c.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update contact: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresContactRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete contact: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Address, &c.City, &c.Country, &c.TaxID, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}
	return &c, nil
}
