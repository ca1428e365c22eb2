package invoiceRepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"invoicely/database"
	"invoicely/models"
)

const numberConstraint = "invoices_user_number_key"

const invoiceColumns = `id, user_id, contact_id, invoice_number, currency, items, subtotal, tax_rate, tax_amount,
	discount_type, discount_value, discount_amount, total, paid_amount, status, payments, notes,
	issue_date, due_date, created_at, updated_at`

type PostgresInvoiceRepo struct {
	db database.DBTX
}

func NewPostgresInvoiceRepo(db database.DBTX) *PostgresInvoiceRepo {
	return &PostgresInvoiceRepo{db: db}
}

func (r *PostgresInvoiceRepo) Create(ctx context.Context, inv *models.Invoice) error {
	items, payments, err := encodeLists(inv)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now

	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err = r.db.ExecContext(ctx, query,
		inv.ID, inv.UserID, nullString(inv.ContactID), inv.InvoiceNumber, inv.Currency, items,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, string(inv.DiscountType), inv.DiscountValue, inv.DiscountAmount,
		inv.Total, inv.PaidAmount, string(inv.Status), payments, inv.Notes,
		inv.IssueDate, nullTime(inv.DueDate), inv.CreatedAt, inv.UpdatedAt)
	if database.IsUniqueViolation(err, numberConstraint) {
		return ErrNumberTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (r *PostgresInvoiceRepo) Get(ctx context.Context, userID, id string) (*models.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *PostgresInvoiceRepo) GetForUpdate(ctx context.Context, userID, id string) (*models.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
}

func (r *PostgresInvoiceRepo) List(ctx context.Context, userID string, filter models.InvoiceFilter) ([]models.Invoice, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1`)
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sb.WriteString(` AND status = $` + strconv.Itoa(len(args)))
	}
	if filter.ContactID != "" {
		args = append(args, filter.ContactID)
		sb.WriteString(` AND contact_id = $` + strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		sb.WriteString(` AND (invoice_number ILIKE $` + n + ` OR notes ILIKE $` + n + `)`)
	}
	sb.WriteString(` ORDER BY issue_date DESC, created_at DESC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}

func (r *PostgresInvoiceRepo) Numbers(ctx context.Context, userID, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT invoice_number FROM invoices WHERE user_id = $1 AND invoice_number LIKE $2`,
		userID, prefix+"-%")
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan invoice number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (r *PostgresInvoiceRepo) Update(ctx context.Context, inv *models.Invoice) (bool, error) {
	items, payments, err := encodeLists(inv)
	if err != nil {
		return false, err
	}
	inv.UpdatedAt = time.Now().UTC()

	query := `UPDATE invoices
		SET contact_id = $3, currency = $4, items = $5, subtotal = $6, tax_rate = $7, tax_amount = $8,
			discount_type = $9, discount_value = $10, discount_amount = $11, total = $12,
			paid_amount = $13, status = $14, payments = $15, notes = $16, issue_date = $17,
			due_date = $18, updated_at = $19
		WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.UserID, nullString(inv.ContactID), inv.Currency, items, inv.Subtotal, inv.TaxRate, inv.TaxAmount,
		string(inv.DiscountType), inv.DiscountValue, inv.DiscountAmount, inv.Total,
		inv.PaidAmount, string(inv.Status), payments, inv.Notes, inv.IssueDate,
		nullTime(inv.DueDate), inv.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update invoice: %w", err)
	}
	return affected(res)
}

// SaveSettlement persists the fields touched by a payment.
func (r *PostgresInvoiceRepo) SaveSettlement(ctx context.Context, inv *models.Invoice) error {
	payments, err := json.Marshal(inv.Payments)
	if err != nil {
		return fmt.Errorf("failed to encode payments: %w", err)
	}
	inv.UpdatedAt = time.Now().UTC()

	query := `UPDATE invoices
		SET paid_amount = $3, payments = $4, status = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.UserID, inv.PaidAmount, string(payments), string(inv.Status), inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("failed to save payment: invoice %s vanished", inv.ID)
	}
	return nil
}

func (r *PostgresInvoiceRepo) UpdateStatus(ctx context.Context, userID, id string, status models.InvoiceStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		id, userID, string(status), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update invoice status: %w", err)
	}
	return affected(res)
}

func (r *PostgresInvoiceRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete invoice: %w", err)
	}
	return affected(res)
}

func (r *PostgresInvoiceRepo) getOne(ctx context.Context, query string, args ...any) (*models.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var (
		inv                  models.Invoice
		contactID            sql.NullString
		dueDate              sql.NullTime
		items, payments      []byte
		discountType, status string
	)
	err := row.Scan(
		&inv.ID, &inv.UserID, &contactID, &inv.InvoiceNumber, &inv.Currency, &items,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &discountType, &inv.DiscountValue, &inv.DiscountAmount,
		&inv.Total, &inv.PaidAmount, &status, &payments, &inv.Notes,
		&inv.IssueDate, &dueDate, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	if contactID.Valid {
		inv.ContactID = &contactID.String
	}
	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	inv.DiscountType = models.DiscountType(discountType)
	inv.Status = models.InvoiceStatus(status)

	inv.Items = []models.LineItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return nil, fmt.Errorf("failed to decode invoice items: %w", err)
		}
	}
	inv.Payments = []models.Payment{}
	if len(payments) > 0 {
		if err := json.Unmarshal(payments, &inv.Payments); err != nil {
			return nil, fmt.Errorf("failed to decode invoice payments: %w", err)
		}
	}
	return &inv, nil
}

func encodeLists(inv *models.Invoice) (string, string, error) {
	if inv.Items == nil {
		inv.Items = []models.LineItem{}
	}
	if inv.Payments == nil {
		inv.Payments = []models.Payment{}
	}
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode invoice items: %w", err)
	}
	payments, err := json.Marshal(inv.Payments)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode invoice payments: %w", err)
	}
	return string(items), string(payments), nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
