package order

import (
	"time"

	"github.com/example/marketflow/internal/domain/model"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced            = "OrderPlaced"
	EventOrderStatusChanged     = "OrderStatusChanged"
	EventOrderItemsAdjusted     = "OrderItemsAdjusted"
	EventDriverAssigned         = "DriverAssigned"
	EventDeliveryDetailsUpdated = "DeliveryDetailsUpdated"
	EventDriverStatusChanged    = "DriverStatusChanged"
)

type OrderPlaced struct {
	OrderID       string              `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	Customer      model.Customer      `json:"customer"`
	Items         []model.OrderItem   `json:"items"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	PlacedAt      time.Time           `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID     string            `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        model.OrderStatus `json:"from"`
	To          model.OrderStatus `json:"to"`
	Total       decimal.Decimal   `json:"total"`
	ChangedAt   time.Time         `json:"changed_at"`
}

type OrderItemsAdjusted struct {
	OrderID     string                      `json:"order_id"`
	OrderNumber string                      `json:"order_number"`
	Adjustments []model.OrderItemAdjustment `json:"adjustments"`
	Total       decimal.Decimal             `json:"total"`
	AdjustedAt  time.Time                   `json:"adjusted_at"`
}

type DriverAssigned struct {
	OrderID     string                 `json:"order_id"`
	OrderNumber string                 `json:"order_number"`
	Driver      model.DriverAssignment `json:"driver"`
}

type DeliveryDetailsUpdated struct {
	OrderID           string                  `json:"order_id"`
	Driver            *model.DriverAssignment `json:"driver,omitempty"`
	EstimatedDelivery *time.Time              `json:"estimated_delivery,omitempty"`
	TrackingNotes     string                  `json:"tracking_notes,omitempty"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

type DriverStatusChanged struct {
	OrderID   string             `json:"order_id"`
	DriverID  string             `json:"driver_id"`
	From      model.DriverStatus `json:"from"`
	To        model.DriverStatus `json:"to"`
	ChangedAt time.Time          `json:"changed_at"`
}
