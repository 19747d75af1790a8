package query

import (
	"context"
	"strings"

	"github.com/example/marketflow/internal/domain/cart"
	"github.com/example/marketflow/internal/domain/invoice"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/domain/order"
	"github.com/example/marketflow/internal/domain/product"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/example/marketflow/internal/readmodel"
	"github.com/shopspring/decimal"
)

// Handler answers read requests straight from the latest snapshot.
type Handler struct {
	repo store.Repository
}

func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// Products

// ListProducts returns the catalog in display order. Inactive products are
// left out unless includeInactive is set.
func (h *Handler) ListProducts(ctx context.Context, includeInactive bool) ([]model.Product, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(snap.Products))
	for _, p := range snap.Products {
		if p.IsActive || includeInactive {
			products = append(products, p)
		}
	}
	return products, nil
}

func (h *Handler) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	p := snap.Product(id)
	if p == nil {
		return nil, product.ErrProductNotFound
	}
	return p, nil
}

// Cart
func (h *Handler) GetCart(ctx context.Context, userID string) (*cart.Cart, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cart.View(snap, userID), nil
}

// Orders
func (h *Handler) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	o := snap.Order(id)
	if o == nil {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (h *Handler) ListOrdersByCustomer(ctx context.Context, userID string) ([]model.Order, error) {
	return h.filterOrders(ctx, func(o *model.Order) bool { return o.Customer.ID == userID })
}

// ListAllOrders returns all orders, newest first (for admin use)
func (h *Handler) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	return h.filterOrders(ctx, func(*model.Order) bool { return true })
}

// ListOrdersByDriver matches the assigned driver's name case-insensitively.
func (h *Handler) ListOrdersByDriver(ctx context.Context, driverName string) ([]model.Order, error) {
	driverName = strings.TrimSpace(driverName)
	return h.filterOrders(ctx, func(o *model.Order) bool {
		return o.Driver != nil && strings.EqualFold(o.Driver.Name, driverName)
	})
}

func (h *Handler) filterOrders(ctx context.Context, keep func(*model.Order) bool) ([]model.Order, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0)
	for i := range snap.Orders {
		if keep(&snap.Orders[i]) {
			orders = append(orders, snap.Orders[i])
		}
	}
	return orders, nil
}

// Invoices

func (h *Handler) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	inv := snap.Invoice(id)
	if inv == nil {
		return nil, invoice.ErrInvoiceNotFound
	}
	return inv, nil
}

// ListInvoices returns every invoice, newest first, joined with its order.
// Invoices whose order is gone keep placeholder customer fields.
func (h *Handler) ListInvoices(ctx context.Context) ([]readmodel.InvoiceWithOrder, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]readmodel.InvoiceWithOrder, 0, len(snap.Invoices))
	for _, inv := range snap.Invoices {
		row := readmodel.InvoiceWithOrder{
			Invoice:      inv,
			OrderNumber:  "N/A",
			CustomerName: "Unknown customer",
		}
		if o := snap.Order(inv.OrderID); o != nil {
			row.OrderNumber = o.OrderNumber
			row.CustomerName = o.Customer.FullName
			row.CustomerEmail = o.Customer.Email
		}
		out = append(out, row)
	}
	return out, nil
}

// Admin

// AdminStats counts orders, open deliveries and invoices. Revenue sums every
// order total regardless of status.
func (h *Handler) AdminStats(ctx context.Context) (*readmodel.AdminStats, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats := &readmodel.AdminStats{
		TotalOrders:   len(snap.Orders),
		TotalInvoices: len(snap.Invoices),
		TotalRevenue:  decimal.Zero,
	}
	for _, o := range snap.Orders {
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		if !o.Status.Terminal() {
			stats.PendingDeliveries++
		}
	}
	stats.TotalRevenue = model.RoundMoney(stats.TotalRevenue)
	return stats, nil
}

// CustomerSummaries lists every account with its orders and spend.
func (h *Handler) CustomerSummaries(ctx context.Context) ([]readmodel.CustomerSummary, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]readmodel.CustomerSummary, 0, len(snap.Users))
	for _, u := range snap.Users {
		summary := readmodel.CustomerSummary{
			UserProfile: readmodel.NewUserProfile(u),
			Orders:      make([]model.Order, 0),
			TotalSpent:  decimal.Zero,
		}
		for _, o := range snap.Orders {
			if o.Customer.ID != u.ID {
				continue
			}
			summary.Orders = append(summary.Orders, o)
			summary.TotalSpent = summary.TotalSpent.Add(o.TotalAmount)
		}
		summary.TotalOrders = len(summary.Orders)
		summary.TotalSpent = model.RoundMoney(summary.TotalSpent)
		out = append(out, summary)
	}
	return out, nil
}

// Deliveries lists orders that still need delivering or have a driver.
func (h *Handler) Deliveries(ctx context.Context) ([]readmodel.Delivery, error) {
	snap, err := h.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]readmodel.Delivery, 0)
	for _, o := range snap.Orders {
		if o.Driver == nil && o.Status == model.OrderDelivered {
			continue
		}
		out = append(out, readmodel.Delivery{
			ID:                o.ID,
			OrderNumber:       o.OrderNumber,
			DeliveryAddress:   o.DeliveryAddress,
			DeliveryCity:      o.DeliveryCity,
			Status:            o.Status,
			Driver:            o.Driver,
			EstimatedDelivery: o.EstimatedDelivery,
			TrackingNotes:     o.TrackingNotes,
		})
	}
	return out, nil
}
