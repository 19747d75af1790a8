package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/marketflow/internal/domain/cart"
	"github.com/example/marketflow/internal/domain/invoice"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/domain/order"
	"github.com/example/marketflow/internal/domain/product"
	"github.com/example/marketflow/internal/domain/user"
	"github.com/example/marketflow/internal/metrics"
	"github.com/example/marketflow/internal/query"
)

var ErrUnknownProduct = errors.New("unknown product")

type Handler struct {
	productSvc *product.Service
	cartSvc    *cart.Service
	orderSvc   *order.Service
	invoiceSvc *invoice.Service
	userSvc    *user.Service
	queries    *query.Handler
	metrics    *metrics.Metrics
}

func NewHandler(
	productSvc *product.Service,
	cartSvc *cart.Service,
	orderSvc *order.Service,
	invoiceSvc *invoice.Service,
	userSvc *user.Service,
	queries *query.Handler,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		productSvc: productSvc,
		cartSvc:    cartSvc,
		orderSvc:   orderSvc,
		invoiceSvc: invoiceSvc,
		userSvc:    userSvc,
		queries:    queries,
		metrics:    m,
	}
}

// CreateProduct adds a catalog entry
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*model.Product, error) {
	return h.productSvc.Create(ctx, product.Input{
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		Stock:       cmd.Stock,
		Unit:        cmd.Unit,
		Category:    cmd.Category,
		ImageURL:    cmd.ImageURL,
		IsActive:    cmd.IsActive,
	})
}

// UpdateProduct applies a partial update
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*model.Product, error) {
	return h.productSvc.Update(ctx, cmd.ProductID, cmd.Patch)
}

// DeleteProduct deletes a product
func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	return h.productSvc.Delete(ctx, cmd.ProductID)
}

func (h *Handler) UpdateStock(ctx context.Context, cmd UpdateStock) (*model.Product, error) {
	return h.productSvc.UpdateStock(ctx, cmd.ProductID, cmd.Stock)
}

// AddToCart adds an item to cart
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (*cart.Cart, error) {
	return h.cartSvc.AddItem(ctx, cmd.UserID, cmd.ProductID, cmd.Quantity)
}

func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) (*cart.Cart, error) {
	return h.cartSvc.UpdateQuantity(ctx, cmd.UserID, cmd.ProductID, cmd.Quantity)
}

// RemoveFromCart removes an item from cart
func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (*cart.Cart, error) {
	return h.cartSvc.RemoveItem(ctx, cmd.UserID, cmd.ProductID)
}

// ClearCart clears all items from cart
func (h *Handler) ClearCart(ctx context.Context, cmd ClearCart) error {
	return h.cartSvc.Clear(ctx, cmd.UserID)
}

// PlaceOrder creates an order for the calling user. Explicit lines are priced
// from the current catalog; otherwise the stored cart is checked out as is.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*model.Order, error) {
	u, err := h.userSvc.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	delivery := model.DeliveryInfo{
		Address:       cmd.DeliveryAddress,
		City:          cmd.DeliveryCity,
		PostalCode:    cmd.DeliveryPostalCode,
		Notes:         cmd.Notes,
		PaymentMethod: cmd.PaymentMethod,
	}

	var o *model.Order
	if len(cmd.Items) > 0 {
		lines, err := h.resolveLines(ctx, cmd.Items)
		if err != nil {
			return nil, err
		}
		o, err = h.orderSvc.CreateFromCart(ctx, u.Customer(), delivery, lines)
		if err != nil {
			return nil, err
		}
	} else {
		o, err = h.orderSvc.Checkout(ctx, u.Customer(), delivery)
		if err != nil {
			return nil, err
		}
	}
	h.metrics.OrderPlaced()
	return o, nil
}

func (h *Handler) resolveLines(ctx context.Context, items []OrderLine) ([]model.CartItem, error) {
	lines := make([]model.CartItem, 0, len(items))
	for _, item := range items {
		p, err := h.queries.GetProduct(ctx, item.ProductID)
		if errors.Is(err, product.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: %s", cart.ErrProductUnavailable, p.Name)
		}
		lines = append(lines, model.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  item.Quantity,
			Category:  p.Category,
			ImageURL:  p.ImageURL,
		})
	}
	return lines, nil
}

// UpdateOrderStatus moves an order along the status allow-list
func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*model.Order, *model.Invoice, error) {
	c, err := h.orderSvc.ChangeStatus(ctx, cmd.OrderID, cmd.Status)
	if err != nil {
		return nil, nil, err
	}
	h.recordChange(c)
	return c.Order, c.Invoice, nil
}

// AdjustOrderItems records delivered quantities, optionally completing the
// delivery in the same step
func (h *Handler) AdjustOrderItems(ctx context.Context, cmd AdjustOrderItems) (*model.Order, *model.Invoice, error) {
	c, err := h.orderSvc.Adjust(ctx, cmd.OrderID, cmd.Adjustments, cmd.MarkDelivered)
	if err != nil {
		return nil, nil, err
	}
	h.recordChange(c)
	return c.Order, c.Invoice, nil
}

func (h *Handler) recordChange(c order.StatusChange) {
	if c.Transitioned() {
		h.metrics.OrderTransitioned(string(c.Order.Status))
	}
	if c.Invoice != nil {
		h.metrics.InvoiceGenerated()
	}
}

func (h *Handler) AssignDriver(ctx context.Context, cmd AssignDriver) (*model.Order, error) {
	return h.orderSvc.AssignDriver(ctx, cmd.OrderID, cmd.Name, cmd.Phone)
}

func (h *Handler) UpdateDeliveryDetails(ctx context.Context, cmd UpdateDeliveryDetails) (*model.Order, error) {
	return h.orderSvc.UpdateDeliveryDetails(ctx, cmd.OrderID, cmd.DeliveryDetails)
}

func (h *Handler) UpdateDriverStatus(ctx context.Context, cmd UpdateDriverStatus) (*model.Order, error) {
	return h.orderSvc.UpdateDriverStatus(ctx, cmd.OrderID, cmd.Status)
}

func (h *Handler) UpdateInvoiceStatus(ctx context.Context, cmd UpdateInvoiceStatus) (*model.Invoice, error) {
	return h.invoiceSvc.UpdateStatus(ctx, cmd.InvoiceID, cmd.Status)
}

// MarkOverdueInvoices runs one overdue sweep
func (h *Handler) MarkOverdueInvoices(ctx context.Context) (int, error) {
	n, err := h.invoiceSvc.MarkOverdue(ctx)
	if err != nil {
		return 0, err
	}
	h.metrics.InvoicesMarkedOverdue(n)
	return n, nil
}
