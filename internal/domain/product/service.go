package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const AggregateType = "Product"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidStock    = errors.New("stock must not be negative")
)

// Input is the full set of fields for a new product.
type Input struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	IsActive    *bool           `json:"is_active"`
}

// Patch updates only the non-nil fields.
type Patch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Unit        *string          `json:"unit"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"image_url"`
	IsActive    *bool            `json:"is_active"`
}

type Service struct {
	repo      store.Repository
	publisher store.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo store.Repository, publisher store.Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.Named("product"),
		now:       time.Now,
	}
}

func validate(name string, price decimal.Decimal, stock int) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	if stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// Create inserts the product at the head of the catalog. Products are active
// unless IsActive says otherwise.
func (s *Service) Create(ctx context.Context, in Input) (*model.Product, error) {
	if err := validate(in.Name, in.Price, in.Stock); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := model.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       model.RoundMoney(in.Price),
		Stock:       in.Stock,
		Unit:        in.Unit,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		snap.Products = append([]model.Product{p}, snap.Products...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	store.Emit(ctx, s.publisher, s.logger, p.ID, AggregateType, EventProductCreated, ProductCreated{Product: p}, snap.Version)
	return &p, nil
}

func (s *Service) Update(ctx context.Context, productID string, patch Patch) (*model.Product, error) {
	var updated model.Product
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		p := snap.Product(productID)
		if p == nil {
			return ErrProductNotFound
		}
		next := *p
		if patch.Name != nil {
			next.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			next.Description = *patch.Description
		}
		if patch.Price != nil {
			next.Price = model.RoundMoney(*patch.Price)
		}
		if patch.Stock != nil {
			next.Stock = *patch.Stock
		}
		if patch.Unit != nil {
			next.Unit = *patch.Unit
		}
		if patch.Category != nil {
			next.Category = *patch.Category
		}
		if patch.ImageURL != nil {
			next.ImageURL = *patch.ImageURL
		}
		if patch.IsActive != nil {
			next.IsActive = *patch.IsActive
		}
		if err := validate(next.Name, next.Price, next.Stock); err != nil {
			return err
		}
		next.UpdatedAt = s.now().UTC()
		*p = next
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.Emit(ctx, s.publisher, s.logger, productID, AggregateType, EventProductUpdated, ProductUpdated{Product: updated}, snap.Version)
	return &updated, nil
}

// Delete removes the product from the catalog. Carts and placed orders keep
// their snapshots.
func (s *Service) Delete(ctx context.Context, productID string) error {
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		for i := range snap.Products {
			if snap.Products[i].ID == productID {
				snap.Products = append(snap.Products[:i], snap.Products[i+1:]...)
				return nil
			}
		}
		return ErrProductNotFound
	})
	if err != nil {
		return err
	}

	s.logger.Info("product deleted", zap.String("product_id", productID))
	store.Emit(ctx, s.publisher, s.logger, productID, AggregateType, EventProductDeleted,
		ProductDeleted{ProductID: productID, DeletedAt: s.now().UTC()}, snap.Version)
	return nil
}

func (s *Service) UpdateStock(ctx context.Context, productID string, stock int) (*model.Product, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	var (
		updated  model.Product
		oldStock int
	)
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		p := snap.Product(productID)
		if p == nil {
			return ErrProductNotFound
		}
		oldStock = p.Stock
		p.Stock = stock
		p.UpdatedAt = s.now().UTC()
		updated = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.Emit(ctx, s.publisher, s.logger, productID, AggregateType, EventStockUpdated, StockUpdated{
		ProductID: productID,
		OldStock:  oldStock,
		NewStock:  stock,
		UpdatedAt: updated.UpdatedAt,
	}, snap.Version)
	return &updated, nil
}
