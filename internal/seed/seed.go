package seed

import (
	"context"
	"errors"
	"time"

	"github.com/example/marketflow/internal/auth"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Demo accounts created on an empty store.
const (
	AdminEmail       = "admin@test.com"
	AdminPassword    = "admin123"
	CustomerEmail    = "customer@test.com"
	CustomerPassword = "customer123"
)

type catalogEntry struct {
	id, name, description, price string
	stock                        int
	category, unit               string
}

var catalog = []catalogEntry{
	{"prd-apples", "Organic Honeycrisp Apples", "Crisp organic apples sourced from local Finnish farms.", "4.90", 120, "produce", "kg"},
	{"prd-salmon", "Nordic Salmon Fillet", "Fresh salmon fillets delivered daily from Lapland.", "14.50", 60, "seafood", "kg"},
	{"prd-oatmilk", "Barista Oat Milk", "Creamy oat milk, perfect for cappuccinos and lattes.", "2.40", 200, "dairy", "l"},
	{"prd-bananas", "Fresh Bananas", "Sweet and ripe bananas, perfect for smoothies or snacks.", "2.10", 150, "produce", "kg"},
	{"prd-oranges", "Juicy Oranges", "Citrusy oranges packed with vitamin C.", "3.20", 140, "produce", "kg"},
	{"prd-strawberries", "Strawberries", "Sweet berries ideal for desserts.", "4.50", 90, "produce", "box"},
	{"prd-broccoli", "Broccoli Crowns", "Fresh green broccoli crowns rich in fiber.", "2.80", 110, "produce", "kg"},
	{"prd-carrots", "Organic Carrots", "Crunchy carrots grown with minimal pesticides.", "1.90", 160, "produce", "kg"},
	{"prd-cucumbers", "Refreshing Cucumbers", "Crisp cucumbers for salads and snacks.", "2.00", 130, "produce", "kg"},
	{"prd-lettuce", "Crispy Lettuce", "Tender lettuce heads for sandwiches or bowls.", "1.70", 100, "produce", "head"},
	{"prd-greek-yogurt", "Greek Yogurt", "Thick and creamy Greek yogurt.", "3.50", 80, "dairy", "500g"},
	{"prd-butter", "Creamy Butter", "Fresh butter ideal for baking and cooking.", "2.60", 90, "dairy", "250g"},
	{"prd-eggs", "Organic Eggs", "Free-range organic eggs from local farms.", "3.90", 200, "dairy", "dozen"},
	{"prd-fresh-bread", "Fresh Bread", "Artisan bread baked daily.", "3.20", 70, "bakery", "loaf"},
	{"prd-chicken-fillet", "Chicken Fillet", "Lean chicken fillet great for grilling.", "6.50", 90, "meat", "kg"},
	{"prd-beef-tenderloin", "Beef Tenderloin", "Premium beef tenderloin for special occasions.", "18.20", 40, "meat", "kg"},
}

// Products returns the demo catalog stamped with now.
func Products(now time.Time) []model.Product {
	products := make([]model.Product, len(catalog))
	for i, c := range catalog {
		products[i] = model.Product{
			ID:          c.id,
			Name:        c.name,
			Description: c.description,
			Price:       decimal.RequireFromString(c.price),
			Stock:       c.stock,
			Unit:        c.unit,
			Category:    c.category,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return products
}

func demoOrder(snap *store.Snapshot, now time.Time) model.Order {
	line := func(id, productID string, qty int) model.OrderItem {
		p := snap.Product(productID)
		delivered := qty
		return model.OrderItem{
			ID:           id,
			ProductID:    p.ID,
			ProductName:  p.Name,
			Category:     p.Category,
			UnitPrice:    p.Price,
			OrderedQty:   qty,
			DeliveredQty: &delivered,
		}
	}
	eta := now.Add(2 * time.Hour)
	o := model.Order{
		ID:                 "ord-1001",
		OrderNumber:        snap.NextOrderNumber(),
		Status:             model.OrderOutForDelivery,
		DeliveryAddress:    "Itamerenkatu 5",
		DeliveryCity:       "Helsinki",
		DeliveryPostalCode: "00180",
		Notes:              "Ring the bell twice",
		EstimatedDelivery:  &eta,
		TrackingNotes:      "Driver en route",
		PaymentMethod:      model.PaymentCard,
		CreatedAt:          now,
		UpdatedAt:          now,
		Customer: model.Customer{
			ID:       "cust-1",
			FullName: "Linnea Korpela",
			Email:    "linnea@example.com",
			Phone:    "+358 50 123 4567",
		},
		Items: []model.OrderItem{
			line("item-1", "prd-apples", 5),
			line("item-2", "prd-salmon", 2),
		},
		Driver: &model.DriverAssignment{
			ID:         "drv-1",
			Name:       "Mikko Laine",
			Phone:      "+358 44 555 1234",
			Status:     model.DriverInTransit,
			AssignedAt: now,
		},
		Adjustments: []model.OrderItemAdjustment{},
	}
	o.RecalculateTotal()
	return o
}

// Demo fills an empty store with the catalog, the two demo accounts and one
// order in flight. It reports whether anything was written; a store that
// already holds data is left alone.
func Demo(ctx context.Context, repo store.Repository, hasher *auth.PasswordHasher, logger *zap.Logger) (bool, error) {
	adminHash, err := hasher.Hash(AdminPassword)
	if err != nil {
		return false, err
	}
	customerHash, err := hasher.Hash(CustomerPassword)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	_, err = store.Update(ctx, repo, func(snap *store.Snapshot) error {
		if len(snap.Products) > 0 || len(snap.Users) > 0 || len(snap.Orders) > 0 {
			return store.ErrNoChange
		}
		snap.Products = Products(now)
		snap.Users = []model.User{
			{ID: "demo-admin", Email: AdminEmail, PasswordHash: adminHash, FullName: "Demo Admin", Role: model.RoleAdmin, CreatedAt: now},
			{ID: "demo-customer", Email: CustomerEmail, PasswordHash: customerHash, FullName: "Demo Customer", Role: model.RoleCustomer, CreatedAt: now},
		}
		snap.Orders = []model.Order{demoOrder(snap, now)}
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		logger.Info("store already populated, skipping demo seed")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	logger.Info("demo data seeded", zap.Int("products", len(catalog)))
	return true, nil
}
