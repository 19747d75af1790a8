package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/marketflow/internal/domain/invoice"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/domain/order"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier sends customer emails
type Notifier interface {
	SendOrderConfirmation(to, orderNumber string, total decimal.Decimal, items []model.OrderItem) error
	SendInvoice(to string, inv model.Invoice) error
}

// Handler processes events for sending notifications
type Handler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		notifier: notifier,
		logger:   logger.Named("notifier"),
	}
}

// HandleEvent processes an event from Kafka. Malformed messages are logged
// and dropped.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("unmarshal event", zap.ByteString("key", key), zap.Error(err))
		return nil
	}

	switch event.EventType {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(event)
	case invoice.EventInvoiceGenerated:
		return h.handleInvoiceGenerated(event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.logger.Error("unmarshal OrderPlaced", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}
	if e.Customer.Email == "" {
		h.logger.Warn("order has no customer email", zap.String("order", e.OrderNumber))
		return nil
	}

	if err := h.notifier.SendOrderConfirmation(e.Customer.Email, e.OrderNumber, e.Total, e.Items); err != nil {
		return fmt.Errorf("order confirmation for %s: %w", e.OrderNumber, err)
	}
	h.logger.Info("order confirmation sent", zap.String("order", e.OrderNumber), zap.String("to", e.Customer.Email))
	return nil
}

func (h *Handler) handleInvoiceGenerated(event store.Event) error {
	var e invoice.InvoiceGenerated
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.logger.Error("unmarshal InvoiceGenerated", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}
	to := e.Invoice.Payload.Customer.Email
	if to == "" {
		h.logger.Warn("invoice has no customer email", zap.String("invoice", e.Invoice.InvoiceNumber))
		return nil
	}

	if err := h.notifier.SendInvoice(to, e.Invoice); err != nil {
		return fmt.Errorf("invoice %s: %w", e.Invoice.InvoiceNumber, err)
	}
	h.logger.Info("invoice sent", zap.String("invoice", e.Invoice.InvoiceNumber), zap.String("to", to))
	return nil
}
