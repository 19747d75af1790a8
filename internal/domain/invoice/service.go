package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const AggregateType = "Invoice"

// PaymentTerm is the gap between issue and due date.
const PaymentTerm = 7 * 24 * time.Hour

var (
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrUnknownStatus     = errors.New("unknown invoice status")
	ErrInvalidTransition = errors.New("invalid invoice status transition")
)

var validTransitions = map[model.InvoiceStatus][]model.InvoiceStatus{
	model.InvoiceDraft:     {model.InvoiceSent, model.InvoicePaid, model.InvoiceCancelled},
	model.InvoiceSent:      {model.InvoicePaid, model.InvoiceOverdue, model.InvoiceCancelled},
	model.InvoiceOverdue:   {model.InvoicePaid, model.InvoiceCancelled},
	model.InvoicePaid:      {},
	model.InvoiceCancelled: {},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to model.InvoiceStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Generate creates the invoice for o inside snap unless the order already has
// one, either linked through InvoiceID or referencing it by OrderID. It must
// run inside store.Update so the check and the insert commit together.
// The boolean reports whether a new invoice was created.
func Generate(snap *store.Snapshot, o *model.Order, now time.Time) (model.Invoice, bool) {
	if o.InvoiceID != "" {
		if existing := snap.Invoice(o.InvoiceID); existing != nil {
			return *existing, false
		}
	}
	if existing := snap.InvoiceForOrder(o.ID); existing != nil {
		o.InvoiceID = existing.ID
		return *existing, false
	}

	issued := now.UTC()
	due := issued.Add(PaymentTerm)
	items := make([]model.OrderItem, len(o.Items))
	copy(items, o.Items)

	inv := model.Invoice{
		ID:            uuid.New().String(),
		OrderID:       o.ID,
		InvoiceNumber: snap.NextInvoiceNumber(),
		IssuedAt:      issued,
		TotalAmount:   o.TotalAmount,
		Status:        model.InvoiceDraft,
		DueDate:       &due,
		Payload: model.InvoicePayload{
			Customer:    o.Customer,
			Items:       items,
			OrderNumber: o.OrderNumber,
		},
	}
	snap.Invoices = append([]model.Invoice{inv}, snap.Invoices...)
	o.InvoiceID = inv.ID
	return inv, true
}

type Service struct {
	repo      store.Repository
	publisher store.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo store.Repository, publisher store.Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.Named("invoice"),
		now:       time.Now,
	}
}

// UpdateStatus moves the invoice along the allow-list. Setting the current
// status again is a no-op. Paying stamps the paid date.
func (s *Service) UpdateStatus(ctx context.Context, invoiceID string, status model.InvoiceStatus) (*model.Invoice, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	var (
		updated model.Invoice
		from    model.InvoiceStatus
	)
	now := s.now().UTC()
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		inv := snap.Invoice(invoiceID)
		if inv == nil {
			return ErrInvoiceNotFound
		}
		from = inv.Status
		if inv.Status == status {
			updated = *inv
			return store.ErrNoChange
		}
		if !CanTransition(inv.Status, status) {
			return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, inv.Status, status)
		}
		inv.Status = status
		if status == model.InvoicePaid {
			inv.PaidDate = &now
		}
		updated = *inv
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return &updated, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice status changed",
		zap.String("invoice", updated.InvoiceNumber),
		zap.String("from", string(from)),
		zap.String("to", string(status)))
	store.Emit(ctx, s.publisher, s.logger, updated.ID, AggregateType, EventInvoiceStatusChanged, InvoiceStatusChanged{
		InvoiceID:     updated.ID,
		InvoiceNumber: updated.InvoiceNumber,
		OrderID:       updated.OrderID,
		From:          from,
		To:            status,
		ChangedAt:     now,
	}, snap.Version)

	return &updated, nil
}

// MarkOverdue moves every sent invoice whose due date has passed to overdue
// and returns how many changed.
func (s *Service) MarkOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	var changed []model.Invoice
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		changed = changed[:0]
		for i := range snap.Invoices {
			inv := &snap.Invoices[i]
			if inv.Status != model.InvoiceSent || inv.DueDate == nil || !now.After(*inv.DueDate) {
				continue
			}
			inv.Status = model.InvoiceOverdue
			changed = append(changed, *inv)
		}
		if len(changed) == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	for _, inv := range changed {
		store.Emit(ctx, s.publisher, s.logger, inv.ID, AggregateType, EventInvoiceStatusChanged, InvoiceStatusChanged{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			OrderID:       inv.OrderID,
			From:          model.InvoiceSent,
			To:            model.InvoiceOverdue,
			ChangedAt:     now,
		}, snap.Version)
	}
	s.logger.Info("overdue sweep", zap.Int("marked", len(changed)))
	return len(changed), nil
}
