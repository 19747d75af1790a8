// Package model holds the persisted entities shared by the workflow services
// and the snapshot repository.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivering     OrderStatus = "delivering"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderOutForDelivery,
		OrderDelivering, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is accepted.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type DriverStatus string

const (
	DriverPending   DriverStatus = "pending"
	DriverAssigned  DriverStatus = "assigned"
	DriverPickedUp  DriverStatus = "picked_up"
	DriverInTransit DriverStatus = "in_transit"
	DriverDelivered DriverStatus = "delivered"
	DriverFailed    DriverStatus = "failed"
)

func (s DriverStatus) Valid() bool {
	switch s {
	case DriverPending, DriverAssigned, DriverPickedUp, DriverInTransit, DriverDelivered, DriverFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCard    PaymentMethod = "card"
	PaymentCash    PaymentMethod = "cash"
	PaymentInvoice PaymentMethod = "invoice"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCash || m == PaymentInvoice
}

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CartItem carries name, price and category as captured when the line was added.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Category  string          `json:"category"`
	ImageURL  string          `json:"image_url,omitempty"`
}

func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type Customer struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// DeliveryInfo is the checkout form payload.
type DeliveryInfo struct {
	Address       string        `json:"address"`
	City          string        `json:"city"`
	PostalCode    string        `json:"postal_code"`
	Notes         string        `json:"notes,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
}

// OrderItem is a snapshot of a cart line; catalog edits never reach it.
type OrderItem struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Category     string          `json:"category"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	OrderedQty   int             `json:"ordered_qty"`
	DeliveredQty *int            `json:"delivered_qty"`
}

// EffectiveQty is the delivered quantity when recorded, else the ordered one.
func (i OrderItem) EffectiveQty() int {
	if i.DeliveredQty != nil {
		return *i.DeliveredQty
	}
	return i.OrderedQty
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.EffectiveQty())))
}

type OrderItemAdjustment struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	OldQty    int       `json:"old_qty"`
	NewQty    int       `json:"new_qty"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DriverAssignment struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Phone      string       `json:"phone,omitempty"`
	Status     DriverStatus `json:"status"`
	AssignedAt time.Time    `json:"assigned_at"`
}

type Order struct {
	ID                 string                `json:"id"`
	OrderNumber        string                `json:"order_number"`
	Status             OrderStatus           `json:"status"`
	DeliveryAddress    string                `json:"delivery_address"`
	DeliveryCity       string                `json:"delivery_city"`
	DeliveryPostalCode string                `json:"delivery_postal_code"`
	Notes              string                `json:"notes,omitempty"`
	EstimatedDelivery  *time.Time            `json:"estimated_delivery,omitempty"`
	TrackingNotes      string                `json:"tracking_notes,omitempty"`
	PaymentMethod      PaymentMethod         `json:"payment_method"`
	TotalAmount        decimal.Decimal       `json:"total_amount"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	Customer           Customer              `json:"customer"`
	Items              []OrderItem           `json:"items"`
	Driver             *DriverAssignment     `json:"assigned_driver,omitempty"`
	Adjustments        []OrderItemAdjustment `json:"adjustments"`
	InvoiceID          string                `json:"invoice_id,omitempty"`
}

// RecalculateTotal sets TotalAmount to the rounded sum of effective line totals.
func (o *Order) RecalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	o.TotalAmount = RoundMoney(total)
	return o.TotalAmount
}

func (o *Order) Item(id string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i]
		}
	}
	return nil
}

type InvoicePayload struct {
	Customer    Customer    `json:"customer"`
	Items       []OrderItem `json:"items"`
	OrderNumber string      `json:"order_number"`
}

type Invoice struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	InvoiceNumber string          `json:"invoice_number"`
	IssuedAt      time.Time       `json:"issued_at"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        InvoiceStatus   `json:"status"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	PaidDate      *time.Time      `json:"paid_date,omitempty"`
	Payload       InvoicePayload  `json:"payload"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Customer projects the user onto the reference embedded in orders.
func (u User) Customer() Customer {
	return Customer{ID: u.ID, FullName: u.FullName, Email: u.Email, Phone: u.Phone}
}

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
