package readmodel

import (
	"time"

	"github.com/example/marketflow/internal/domain/model"
	"github.com/shopspring/decimal"
)

// AdminStats is the dashboard summary
type AdminStats struct {
	TotalOrders       int             `json:"total_orders"`
	PendingDeliveries int             `json:"pending_deliveries"`
	TotalInvoices     int             `json:"total_invoices"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
}

// UserProfile is a user without credentials
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserProfile(u model.User) UserProfile {
	return UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// CustomerSummary is one account with its order history
type CustomerSummary struct {
	UserProfile
	Orders      []model.Order   `json:"orders"`
	TotalOrders int             `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

// Delivery is an order as seen by dispatch
type Delivery struct {
	ID                string                  `json:"id"`
	OrderNumber       string                  `json:"order_number"`
	DeliveryAddress   string                  `json:"delivery_address"`
	DeliveryCity      string                  `json:"delivery_city"`
	Status            model.OrderStatus       `json:"status"`
	Driver            *model.DriverAssignment `json:"driver,omitempty"`
	EstimatedDelivery *time.Time              `json:"estimated_delivery,omitempty"`
	TrackingNotes     string                  `json:"tracking_notes,omitempty"`
}

// InvoiceWithOrder joins an invoice with its order's number and customer
type InvoiceWithOrder struct {
	model.Invoice
	OrderNumber   string `json:"order_number"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}
