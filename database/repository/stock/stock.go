package stockRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"invoicely/database"
	"invoicely/models"
)

var (
	// ErrSKUTaken is returned when the owner already uses the SKU.
	ErrSKUTaken = errors.New("sku already in use")
	// ErrInsufficientStock is returned when an adjustment would go below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

const skuConstraint = "stock_items_user_sku_key"

// StockRepository is owner-scoped like every other resource repository.
type StockRepository interface {
	Create(ctx context.Context, item *models.StockItem) error
	Get(ctx context.Context, userID, id string) (*models.StockItem, error)
	List(ctx context.Context, userID string, lowOnly bool) ([]models.StockItem, error)
	Update(ctx context.Context, item *models.StockItem) (bool, error)
	// Adjust adds delta to the quantity in one statement and fails with
	// ErrInsufficientStock instead of going negative.
	Adjust(ctx context.Context, userID, id string, delta float64) (*models.StockItem, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

const stockColumns = `id, user_id, name, sku, description, unit, unit_price, quantity, low_stock_threshold, created_at, updated_at`

type PostgresStockRepo struct {
	db database.DBTX
}

func NewPostgresStockRepo(db database.DBTX) *PostgresStockRepo {
	return &PostgresStockRepo{db: db}
}

func (r *PostgresStockRepo) Create(ctx context.Context, item *models.StockItem) error {
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	query := `INSERT INTO stock_items (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.Name, item.SKU, item.Description, item.Unit,
		item.UnitPrice, item.Quantity, item.LowStockThreshold, item.CreatedAt, item.UpdatedAt)
	if database.IsUniqueViolation(err, skuConstraint) {
		return ErrSKUTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert stock item: %w", err)
	}
	return nil
}

func (r *PostgresStockRepo) Get(ctx context.Context, userID, id string) (*models.StockItem, error) {
	item, err := scanStock(r.db.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM stock_items WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *PostgresStockRepo) List(ctx context.Context, userID string, lowOnly bool) ([]models.StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE user_id = $1`
	if lowOnly {
		query += ` AND low_stock_threshold > 0 AND quantity <= low_stock_threshold`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock items: %w", err)
	}
	defer rows.Close()

	items := []models.StockItem{}
	for rows.Next() {
		item, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stock items: %w", err)
	}
	return items, nil
}

func (r *PostgresStockRepo) Update(ctx context.Context, item *models.StockItem) (bool, error) {
	item.UpdatedAt = time.Now().UTC()
	query := `UPDATE stock_items
		SET name = $3, sku = $4, description = $5, unit = $6, unit_price = $7, quantity = $8,
			low_stock_threshold = $9, updated_at = $10
		WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.Name, item.SKU, item.Description, item.Unit,
		item.UnitPrice, item.Quantity, item.LowStockThreshold, item.UpdatedAt)
	if database.IsUniqueViolation(err, skuConstraint) {
		return false, ErrSKUTaken
	}
	if err != nil {
		return false, fmt.Errorf("failed to update stock item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update stock item: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresStockRepo) Adjust(ctx context.Context, userID, id string, delta float64) (*models.StockItem, error) {
	query := `UPDATE stock_items
		SET quantity = quantity + $3, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND quantity + $3 >= 0
		RETURNING ` + stockColumns
	item, err := scanStock(r.db.QueryRowContext(ctx, query, id, userID, delta, time.Now().UTC()))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Nothing updated: either the item is missing or the stock is too low.
	existing, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	return nil, ErrInsufficientStock
}

func (r *PostgresStockRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete stock item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete stock item: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(row rowScanner) (*models.StockItem, error) {
	var s models.StockItem
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.SKU, &s.Description, &s.Unit,
		&s.UnitPrice, &s.Quantity, &s.LowStockThreshold, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock item: %w", err)
	}
	return &s, nil
}
