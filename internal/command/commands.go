package command

import (
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/domain/order"
	"github.com/example/marketflow/internal/domain/product"
	"github.com/shopspring/decimal"
)

// Product Commands
type CreateProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	IsActive    *bool           `json:"is_active"`
}

type UpdateProduct struct {
	ProductID string `json:"-"`
	product.Patch
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

type UpdateStock struct {
	ProductID string `json:"-"`
	Stock     int    `json:"stock"`
}

// Cart Commands
type AddToCart struct {
	UserID    string `json:"-"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItem struct {
	UserID    string `json:"-"`
	ProductID string `json:"-"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

type ClearCart struct {
	UserID string `json:"user_id"`
}

// Order Commands

// OrderLine asks for quantity units of a catalog product.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrder checks out the given lines, or the user's stored cart when
// Items is empty.
type PlaceOrder struct {
	UserID             string              `json:"-"`
	Items              []OrderLine         `json:"items"`
	DeliveryAddress    string              `json:"delivery_address"`
	DeliveryCity       string              `json:"delivery_city"`
	DeliveryPostalCode string              `json:"delivery_postal_code"`
	Notes              string              `json:"notes"`
	PaymentMethod      model.PaymentMethod `json:"payment_method"`
}

type UpdateOrderStatus struct {
	OrderID string            `json:"-"`
	Status  model.OrderStatus `json:"status"`
}

type AdjustOrderItems struct {
	OrderID       string             `json:"-"`
	Adjustments   []order.Adjustment `json:"adjustments"`
	MarkDelivered bool               `json:"mark_delivered"`
}

type AssignDriver struct {
	OrderID string `json:"-"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
}

type UpdateDeliveryDetails struct {
	OrderID string `json:"-"`
	order.DeliveryDetails
}

type UpdateDriverStatus struct {
	OrderID string             `json:"-"`
	Status  model.DriverStatus `json:"status"`
}

// Invoice Commands
type UpdateInvoiceStatus struct {
	InvoiceID string              `json:"-"`
	Status    model.InvoiceStatus `json:"status"`
}
