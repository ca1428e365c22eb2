package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	stockRepo "invoicely/database/repository/stock"
	"invoicely/models"
	"invoicely/utils"
)

// maxQuantity matches the NUMERIC(14,3) quantity column.
const maxQuantity = 99_999_999_999.999

var (
	errItemNotFound = utils.NewError(utils.ErrNotFound, "Stock item not found")
	errSKUTaken     = utils.NewError(utils.ErrConflict, "Another item already uses this SKU")
)

// StockService manages one owner's inventory.
type StockService interface {
	Create(ctx context.Context, userID string, in models.StockItemInput) (*models.StockItem, error)
	Get(ctx context.Context, userID, id string) (*models.StockItem, error)
	List(ctx context.Context, userID string, lowOnly bool) ([]models.StockItem, error)
	Update(ctx context.Context, userID, id string, in models.StockItemInput) (*models.StockItem, error)
	Adjust(ctx context.Context, userID, id string, adj models.StockAdjustment) (*models.StockItem, error)
	Delete(ctx context.Context, userID, id string) error
}

type DefaultStockService struct {
	Repo   stockRepo.StockRepository
	Logger *zap.Logger
}

func (s *DefaultStockService) Create(ctx context.Context, userID string, in models.StockItemInput) (*models.StockItem, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	item := &models.StockItem{ID: uuid.New().String(), UserID: userID}
	apply(item, in)
	if err := s.Repo.Create(ctx, item); err != nil {
		if errors.Is(err, stockRepo.ErrSKUTaken) {
			return nil, errSKUTaken
		}
		return nil, fmt.Errorf("failed to create stock item: %w", err)
	}
	return item, nil
}

func (s *DefaultStockService) Get(ctx context.Context, userID, id string) (*models.StockItem, error) {
	item, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock item: %w", err)
	}
	if item == nil {
		return nil, errItemNotFound
	}
	return item, nil
}

func (s *DefaultStockService) List(ctx context.Context, userID string, lowOnly bool) ([]models.StockItem, error) {
	items, err := s.Repo.List(ctx, userID, lowOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	return items, nil
}

func (s *DefaultStockService) Update(ctx context.Context, userID, id string, in models.StockItemInput) (*models.StockItem, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	apply(item, in)
	ok, err := s.Repo.Update(ctx, item)
	if err != nil {
		if errors.Is(err, stockRepo.ErrSKUTaken) {
			return nil, errSKUTaken
		}
		return nil, fmt.Errorf("failed to update stock item: %w", err)
	}
	if !ok {
		return nil, errItemNotFound
	}
	return item, nil
}

// Adjust moves the quantity by adj.Delta. The quantity never goes negative.
func (s *DefaultStockService) Adjust(ctx context.Context, userID, id string, adj models.StockAdjustment) (*models.StockItem, error) {
	if adj.Delta == 0 {
		return nil, utils.NewValidationError("delta", "Adjustment cannot be zero")
	}
	if adj.Delta > maxQuantity || adj.Delta < -maxQuantity {
		return nil, utils.NewValidationError("delta", "Adjustment is too large")
	}
	item, err := s.Repo.Adjust(ctx, userID, id, adj.Delta)
	if err != nil {
		if errors.Is(err, stockRepo.ErrInsufficientStock) {
			return nil, utils.NewError(utils.ErrBusinessRule, "Not enough stock for this adjustment")
		}
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	if item == nil {
		return nil, errItemNotFound
	}
	if item.LowStock() {
		s.Logger.Info("Stock item is low",
			zap.String("itemID", item.ID),
			zap.Float64("quantity", item.Quantity),
			zap.String("reason", adj.Reason),
		)
	}
	return item, nil
}

func (s *DefaultStockService) Delete(ctx context.Context, userID, id string) error {
	ok, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete stock item: %w", err)
	}
	if !ok {
		return errItemNotFound
	}
	return nil
}

func validate(in *models.StockItemInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	switch {
	case in.Name == "":
		return utils.NewValidationError("name", "Name is required")
	case in.Quantity < 0:
		return utils.NewValidationError("quantity", "Quantity cannot be negative")
	case in.UnitPrice < 0:
		return utils.NewValidationError("unit_price", "Unit price cannot be negative")
	case in.LowStockThreshold < 0:
		return utils.NewValidationError("low_stock_threshold", "Threshold cannot be negative")
	case in.UnitPrice > models.MaxAmount:
		return utils.NewValidationError("unit_price", "Unit price is too large")
	case in.Quantity > maxQuantity, in.LowStockThreshold > maxQuantity:
		return utils.NewValidationError("quantity", "Quantity is too large")
	}
	return nil
}

func apply(item *models.StockItem, in models.StockItemInput) {
	item.Name = in.Name
	item.SKU = in.SKU
	item.Description = strings.TrimSpace(in.Description)
	item.Unit = strings.TrimSpace(in.Unit)
	item.UnitPrice = models.RoundMoney(in.UnitPrice)
	item.Quantity = in.Quantity
	item.LowStockThreshold = in.LowStockThreshold
}
