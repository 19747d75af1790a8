package product

import (
	"time"

	"github.com/example/marketflow/internal/domain/model"
)

const (
	EventProductCreated = "ProductCreated"
	EventProductUpdated = "ProductUpdated"
	EventProductDeleted = "ProductDeleted"
	EventStockUpdated   = "ProductStockUpdated"
)

type ProductCreated struct {
	Product model.Product `json:"product"`
}

type ProductUpdated struct {
	Product model.Product `json:"product"`
}

type ProductDeleted struct {
	ProductID string    `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type StockUpdated struct {
	ProductID string    `json:"product_id"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
	UpdatedAt time.Time `json:"updated_at"`
}
