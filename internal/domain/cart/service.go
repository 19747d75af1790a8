package cart

import (
	"context"
	"errors"
	"time"

	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/domain/product"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const AggregateType = "Cart"

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidProduct     = errors.New("product_id is required")
	ErrProductUnavailable = errors.New("product is not available")
	ErrItemNotInCart      = errors.New("item not in cart")
)

// Cart is the read view of one owner's cart.
type Cart struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Items      []model.CartItem `json:"items"`
	TotalItems int              `json:"total_items"`
	TotalPrice decimal.Decimal  `json:"total_price"`
}

// GetCartID returns the cart key for a user. Each user owns exactly one cart.
func GetCartID(userID string) string {
	return "cart-" + userID
}

// View builds the cart view for userID from snap.
func View(snap *store.Snapshot, userID string) *Cart {
	items := snap.Carts[GetCartID(userID)]
	c := &Cart{
		ID:         GetCartID(userID),
		UserID:     userID,
		Items:      make([]model.CartItem, len(items)),
		TotalPrice: decimal.Zero,
	}
	copy(c.Items, items)
	for _, item := range items {
		c.TotalItems += item.Quantity
		c.TotalPrice = c.TotalPrice.Add(item.LineTotal())
	}
	c.TotalPrice = model.RoundMoney(c.TotalPrice)
	return c
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
		logger:    logger.Named("cart"),
		now:       time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return View(snap, userID), nil
}

// AddItem adds quantity units of the product, snapshotting its current name,
// price and category. A zero quantity adds one unit. Stock is not checked.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		quantity = 1
	}

	cartID := GetCartID(userID)
	var (
		view    *Cart
		lineQty int
	)
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		p := snap.Product(productID)
		if p == nil {
			return product.ErrProductNotFound
		}
		if !p.IsActive {
			return ErrProductUnavailable
		}

		items := snap.Carts[cartID]
		found := false
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity += quantity
				lineQty = items[i].Quantity
				found = true
				break
			}
		}
		if !found {
			items = append(items, model.CartItem{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				Quantity:  quantity,
				Category:  p.Category,
				ImageURL:  p.ImageURL,
			})
			lineQty = quantity
		}
		snap.Carts[cartID] = items
		view = View(snap, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.Emit(ctx, s.publisher, s.logger, cartID, AggregateType, EventItemAdded, ItemAddedToCart{
		CartID:    cartID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  lineQty,
		AddedAt:   s.now().UTC(),
	}, snap.Version)
	return view, nil
}

// UpdateQuantity sets the line quantity; zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if productID == "" {
		return nil, ErrInvalidProduct
	}

	cartID := GetCartID(userID)
	var view *Cart
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		items := snap.Carts[cartID]
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = quantity
				view = View(snap, userID)
				return nil
			}
		}
		return ErrItemNotInCart
	})
	if err != nil {
		return nil, err
	}

	store.Emit(ctx, s.publisher, s.logger, cartID, AggregateType, EventQuantityChanged, QuantityChanged{
		CartID:    cartID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		ChangedAt: s.now().UTC(),
	}, snap.Version)
	return view, nil
}

// RemoveItem drops the line. Removing an absent line is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}

	cartID := GetCartID(userID)
	var (
		view    *Cart
		removed bool
	)
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		removed = false
		items := snap.Carts[cartID]
		kept := items[:0]
		for _, item := range items {
			if item.ProductID == productID {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		if len(kept) == 0 {
			delete(snap.Carts, cartID)
		} else {
			snap.Carts[cartID] = kept
		}
		view = View(snap, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if removed {
		store.Emit(ctx, s.publisher, s.logger, cartID, AggregateType, EventItemRemoved, ItemRemovedFromCart{
			CartID:    cartID,
			UserID:    userID,
			ProductID: productID,
			RemovedAt: s.now().UTC(),
		}, snap.Version)
	}
	return view, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	cartID := GetCartID(userID)
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		delete(snap.Carts, cartID)
		return nil
	})
	if err != nil {
		return err
	}

	store.Emit(ctx, s.publisher, s.logger, cartID, AggregateType, EventCartCleared, CartCleared{
		CartID:    cartID,
		UserID:    userID,
		ClearedAt: s.now().UTC(),
	}, snap.Version)
	return nil
}
