package api

import (
	"net/http"

	"github.com/example/marketflow/internal/api/middleware"
	"github.com/example/marketflow/internal/command"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logger.Named("api"),
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	respondErr(h.logger, w, r, err)
}

// Product Handlers

// GetProducts lists the active catalog. Admins may pass ?all=true to include
// inactive products.
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("all") == "true" && isAdmin(r)
	products, err := h.queryHandler.ListProducts(r.Context(), includeInactive)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.queryHandler.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	product, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateProduct
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ProductID = chi.URLParam(r, "id")

	product, err := h.cmdHandler.UpdateProduct(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteProduct{ProductID: chi.URLParam(r, "id")}
	if err := h.cmdHandler.DeleteProduct(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateStock
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ProductID = chi.URLParam(r, "id")

	product, err := h.cmdHandler.UpdateStock(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.queryHandler.GetCart(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	cart, err := h.cmdHandler.AddToCart(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateCartItem
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())
	cmd.ProductID = chi.URLParam(r, "productID")

	cart, err := h.cmdHandler.UpdateCartItem(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveFromCart{
		UserID:    middleware.GetUserID(r.Context()),
		ProductID: chi.URLParam(r, "productID"),
	}
	cart, err := h.cmdHandler.RemoveFromCart(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	cmd := command.ClearCart{UserID: middleware.GetUserID(r.Context())}
	if err := h.cmdHandler.ClearCart(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	order, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *Handlers) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrdersByCustomer(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GetOrder lets customers read only their own orders; admins read all.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.queryHandler.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if order.Customer.ID != middleware.GetUserID(r.Context()) && !isAdmin(r) {
		h.fail(w, r, errForbidden)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListAllOrders(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

type orderResult struct {
	Order   *model.Order   `json:"order"`
	Invoice *model.Invoice `json:"invoice,omitempty"`
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateOrderStatus
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	order, inv, err := h.cmdHandler.UpdateOrderStatus(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResult{Order: order, Invoice: inv})
}

func (h *Handlers) AdjustOrderItems(w http.ResponseWriter, r *http.Request) {
	var cmd command.AdjustOrderItems
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	order, inv, err := h.cmdHandler.AdjustOrderItems(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResult{Order: order, Invoice: inv})
}

func (h *Handlers) AssignDriver(w http.ResponseWriter, r *http.Request) {
	var cmd command.AssignDriver
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	order, err := h.cmdHandler.AssignDriver(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handlers) UpdateDeliveryDetails(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateDeliveryDetails
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	order, err := h.cmdHandler.UpdateDeliveryDetails(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handlers) UpdateDriverStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateDriverStatus
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	order, err := h.cmdHandler.UpdateDriverStatus(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Delivery Handlers

func (h *Handlers) GetDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.queryHandler.Deliveries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deliveries)
}

func (h *Handlers) GetDriverOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrdersByDriver(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// Invoice Handlers

func (h *Handlers) GetInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.queryHandler.ListInvoices(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invoices)
}

func (h *Handlers) UpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateInvoiceStatus
	if err := decode(r, &cmd); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd.InvoiceID = chi.URLParam(r, "id")

	inv, err := h.cmdHandler.UpdateInvoiceStatus(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// Admin Handlers

func (h *Handlers) GetAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queryHandler.AdminStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) GetCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.queryHandler.CustomerSummaries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	return ok && claims.Role == model.RoleAdmin
}
