package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/marketflow/internal/domain/cart"
	"github.com/example/marketflow/internal/domain/invoice"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const AggregateType = "Order"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyOrder           = errors.New("order must have at least one item")
	ErrInvalidQuantity      = errors.New("item quantity must be at least 1")
	ErrMissingCustomer      = errors.New("customer is required")
	ErrMissingDelivery      = errors.New("delivery address, city and postal code are required")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrUnknownStatus        = errors.New("unknown order status")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrOrderClosed          = errors.New("order is closed")
	ErrInvalidDriver        = errors.New("driver name is required")
	ErrDriverNotAssigned    = errors.New("order has no assigned driver")
	ErrUnknownDriverStatus  = errors.New("unknown driver status")
)

// validTransitions lists every status change accepted by UpdateStatus.
// Delivered and cancelled are terminal.
var validTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending: {
		model.OrderConfirmed, model.OrderPreparing, model.OrderOutForDelivery,
		model.OrderDelivering, model.OrderDelivered, model.OrderCancelled,
	},
	model.OrderConfirmed: {
		model.OrderPreparing, model.OrderOutForDelivery, model.OrderDelivering,
		model.OrderDelivered, model.OrderCancelled,
	},
	model.OrderPreparing: {
		model.OrderOutForDelivery, model.OrderDelivering, model.OrderDelivered, model.OrderCancelled,
	},
	model.OrderOutForDelivery: {model.OrderDelivering, model.OrderDelivered, model.OrderCancelled},
	model.OrderDelivering:     {model.OrderOutForDelivery, model.OrderDelivered, model.OrderCancelled},
	model.OrderDelivered:      {},
	model.OrderCancelled:      {},
}

// CanTransition reports whether an order in from may move to to.
func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from, to model.OrderStatus) error {
	if from.Terminal() {
		return fmt.Errorf("%w: order is %s", ErrOrderClosed, from)
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
}

// Adjustment sets the delivered quantity of one order item.
type Adjustment struct {
	ItemID       string `json:"item_id"`
	DeliveredQty int    `json:"delivered_qty"`
	Reason       string `json:"reason,omitempty"`
}

// DeliveryDetails patches driver and tracking metadata; nil fields are kept.
type DeliveryDetails struct {
	DriverName        *string    `json:"driver_name"`
	DriverPhone       *string    `json:"driver_phone"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	TrackingNotes     *string    `json:"tracking_notes"`
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
		logger:    logger.Named("order"),
		now:       time.Now,
	}
}

// CreateFromCart places an order from cart lines. Each line becomes an order
// item with its name, category and price frozen and the delivered quantity
// set to the ordered one. The customer's stored cart is cleared in the same
// update. Stock is not re-checked.
func (s *Service) CreateFromCart(ctx context.Context, customer model.Customer, delivery model.DeliveryInfo, items []model.CartItem) (*model.Order, error) {
	if customer.ID == "" {
		return nil, ErrMissingCustomer
	}
	if err := validateLines(items); err != nil {
		return nil, err
	}
	payment, err := validateDelivery(delivery)
	if err != nil {
		return nil, err
	}
	return s.place(ctx, customer, delivery, payment, func(*store.Snapshot) ([]model.CartItem, error) {
		return items, nil
	})
}

// Checkout places an order from the customer's stored cart. The lines are
// read in the same update that clears the cart, so an item added while the
// order is being placed is either ordered or left in the cart.
func (s *Service) Checkout(ctx context.Context, customer model.Customer, delivery model.DeliveryInfo) (*model.Order, error) {
	if customer.ID == "" {
		return nil, ErrMissingCustomer
	}
	payment, err := validateDelivery(delivery)
	if err != nil {
		return nil, err
	}
	return s.place(ctx, customer, delivery, payment, func(snap *store.Snapshot) ([]model.CartItem, error) {
		items := snap.Carts[cart.GetCartID(customer.ID)]
		if err := validateLines(items); err != nil {
			return nil, err
		}
		return items, nil
	})
}

func validateLines(items []model.CartItem) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
	}
	return nil
}

// validateDelivery checks the address and returns the payment method,
// defaulting to card.
func validateDelivery(delivery model.DeliveryInfo) (model.PaymentMethod, error) {
	if strings.TrimSpace(delivery.Address) == "" ||
		strings.TrimSpace(delivery.City) == "" ||
		strings.TrimSpace(delivery.PostalCode) == "" {
		return "", ErrMissingDelivery
	}
	payment := delivery.PaymentMethod
	if payment == "" {
		payment = model.PaymentCard
	}
	if !payment.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, payment)
	}
	return payment, nil
}

func (s *Service) place(ctx context.Context, customer model.Customer, delivery model.DeliveryInfo, payment model.PaymentMethod, lines func(*store.Snapshot) ([]model.CartItem, error)) (*model.Order, error) {
	now := s.now().UTC()
	var placed model.Order
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		items, err := lines(snap)
		if err != nil {
			return err
		}
		orderItems := make([]model.OrderItem, len(items))
		for i, line := range items {
			qty := line.Quantity
			orderItems[i] = model.OrderItem{
				ID:           uuid.New().String(),
				ProductID:    line.ProductID,
				ProductName:  line.Name,
				Category:     line.Category,
				UnitPrice:    line.Price,
				OrderedQty:   line.Quantity,
				DeliveredQty: &qty,
			}
		}

		o := model.Order{
			ID:                 uuid.New().String(),
			OrderNumber:        snap.NextOrderNumber(),
			Status:             model.OrderPending,
			DeliveryAddress:    strings.TrimSpace(delivery.Address),
			DeliveryCity:       strings.TrimSpace(delivery.City),
			DeliveryPostalCode: strings.TrimSpace(delivery.PostalCode),
			Notes:              delivery.Notes,
			PaymentMethod:      payment,
			CreatedAt:          now,
			UpdatedAt:          now,
			Customer:           customer,
			Items:              orderItems,
			Adjustments:        []model.OrderItemAdjustment{},
		}
		o.RecalculateTotal()

		snap.Orders = append([]model.Order{o}, snap.Orders...)
		delete(snap.Carts, cart.GetCartID(customer.ID))
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order", placed.OrderNumber),
		zap.String("customer_id", customer.ID),
		zap.String("total", placed.TotalAmount.StringFixed(2)))
	store.Emit(ctx, s.publisher, s.logger, placed.ID, AggregateType, EventOrderPlaced, OrderPlaced{
		OrderID:       placed.ID,
		OrderNumber:   placed.OrderNumber,
		Customer:      placed.Customer,
		Items:         placed.Items,
		Total:         placed.TotalAmount,
		PaymentMethod: placed.PaymentMethod,
		PlacedAt:      now,
	}, snap.Version)
	return &placed, nil
}

// enter moves o to status. Entering delivered recomputes the total from
// effective quantities and generates the invoice unless one exists. The
// returned invoice is non-nil only when it was created here.
func enter(snap *store.Snapshot, o *model.Order, status model.OrderStatus, now time.Time) *model.Invoice {
	o.Status = status
	o.UpdatedAt = now
	if status != model.OrderDelivered {
		return nil
	}
	o.RecalculateTotal()
	inv, created := invoice.Generate(snap, o, now)
	if !created {
		return nil
	}
	return &inv
}

// StatusChange is the outcome of a committed order update. From is the
// status the order had when the update was applied.
type StatusChange struct {
	Order   *model.Order
	Invoice *model.Invoice
	From    model.OrderStatus
}

// Transitioned reports whether the update moved the order to a new status.
func (c StatusChange) Transitioned() bool {
	return c.Order != nil && c.From != c.Order.Status
}

// UpdateStatus applies a status change from the allow-list. Requesting the
// current status is a no-op, except that a delivered order lacking an
// invoice gets one.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, *model.Invoice, error) {
	c, err := s.ChangeStatus(ctx, orderID, status)
	if err != nil {
		return nil, nil, err
	}
	return c.Order, c.Invoice, nil
}

// ChangeStatus is UpdateStatus reporting the status observed inside the
// update.
func (s *Service) ChangeStatus(ctx context.Context, orderID string, status model.OrderStatus) (StatusChange, error) {
	if !status.Valid() {
		return StatusChange{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	now := s.now().UTC()
	var (
		updated model.Order
		from    model.OrderStatus
		inv     *model.Invoice
	)
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		o := snap.Order(orderID)
		if o == nil {
			return ErrOrderNotFound
		}
		from = o.Status
		inv = nil

		if from == status {
			if status == model.OrderDelivered {
				if generated, created := invoice.Generate(snap, o, now); created {
					inv = &generated
					updated = *o
					return nil
				}
			}
			updated = *o
			return store.ErrNoChange
		}
		if !CanTransition(from, status) {
			return transitionError(from, status)
		}

		inv = enter(snap, o, status, now)
		updated = *o
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return StatusChange{Order: &updated, From: from}, nil
	}
	if err != nil {
		return StatusChange{}, err
	}

	if from != status {
		s.logger.Info("order status changed",
			zap.String("order", updated.OrderNumber),
			zap.String("from", string(from)),
			zap.String("to", string(status)))
		s.emitStatusChanged(ctx, &updated, from, now, snap.Version)
	}
	s.emitInvoice(ctx, inv, snap.Version)
	return StatusChange{Order: &updated, Invoice: inv, From: from}, nil
}

// AdjustItems records delivered quantities. Each adjustment clamps the
// quantity at zero and appends an audit entry holding the previous effective
// quantity; unknown item ids are skipped. The total is then recomputed. With
// markDelivered the order also moves to delivered and is invoiced in the same
// update. Marking an already delivered order delivered again with no
// adjustments is a no-op.
func (s *Service) AdjustItems(ctx context.Context, orderID string, adjustments []Adjustment, markDelivered bool) (*model.Order, *model.Invoice, error) {
	c, err := s.Adjust(ctx, orderID, adjustments, markDelivered)
	if err != nil {
		return nil, nil, err
	}
	return c.Order, c.Invoice, nil
}

// Adjust is AdjustItems reporting the status observed inside the update.
func (s *Service) Adjust(ctx context.Context, orderID string, adjustments []Adjustment, markDelivered bool) (StatusChange, error) {
	now := s.now().UTC()
	var (
		updated model.Order
		from    model.OrderStatus
		applied []model.OrderItemAdjustment
		skipped []string
		inv     *model.Invoice
	)
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		applied, skipped, inv = nil, nil, nil

		o := snap.Order(orderID)
		if o == nil {
			return ErrOrderNotFound
		}
		from = o.Status
		if from == model.OrderDelivered && markDelivered && len(adjustments) == 0 {
			updated = *o
			return store.ErrNoChange
		}
		if from.Terminal() {
			return fmt.Errorf("%w: order is %s", ErrOrderClosed, from)
		}

		for _, adj := range adjustments {
			item := o.Item(adj.ItemID)
			if item == nil {
				skipped = append(skipped, adj.ItemID)
				continue
			}
			newQty := max(adj.DeliveredQty, 0)
			entry := model.OrderItemAdjustment{
				ID:        uuid.New().String(),
				ItemID:    item.ID,
				OldQty:    item.EffectiveQty(),
				NewQty:    newQty,
				Reason:    adj.Reason,
				UpdatedAt: now,
			}
			item.DeliveredQty = &newQty
			o.Adjustments = append(o.Adjustments, entry)
			applied = append(applied, entry)
		}

		o.RecalculateTotal()
		o.UpdatedAt = now
		if markDelivered {
			inv = enter(snap, o, model.OrderDelivered, now)
		}
		updated = *o
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return StatusChange{Order: &updated, From: from}, nil
	}
	if err != nil {
		return StatusChange{}, err
	}

	if len(skipped) > 0 {
		s.logger.Warn("adjustment skipped unknown items",
			zap.String("order", updated.OrderNumber),
			zap.Strings("item_ids", skipped))
	}
	s.logger.Info("order items adjusted",
		zap.String("order", updated.OrderNumber),
		zap.Int("applied", len(applied)),
		zap.String("total", updated.TotalAmount.StringFixed(2)))

	store.Emit(ctx, s.publisher, s.logger, updated.ID, AggregateType, EventOrderItemsAdjusted, OrderItemsAdjusted{
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		Adjustments: applied,
		Total:       updated.TotalAmount,
		AdjustedAt:  now,
	}, snap.Version)
	if markDelivered {
		s.emitStatusChanged(ctx, &updated, from, now, snap.Version)
	}
	s.emitInvoice(ctx, inv, snap.Version)
	return StatusChange{Order: &updated, Invoice: inv, From: from}, nil
}

// AssignDriver replaces any current driver with a freshly assigned one.
func (s *Service) AssignDriver(ctx context.Context, orderID, name, phone string) (*model.Order, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidDriver
	}

	now := s.now().UTC()
	var updated model.Order
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		o := snap.Order(orderID)
		if o == nil {
			return ErrOrderNotFound
		}
		if o.Status.Terminal() {
			return fmt.Errorf("%w: order is %s", ErrOrderClosed, o.Status)
		}
		o.Driver = &model.DriverAssignment{
			ID:         uuid.New().String(),
			Name:       name,
			Phone:      strings.TrimSpace(phone),
			Status:     model.DriverAssigned,
			AssignedAt: now,
		}
		o.UpdatedAt = now
		updated = *o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("driver assigned", zap.String("order", updated.OrderNumber), zap.String("driver", name))
	store.Emit(ctx, s.publisher, s.logger, updated.ID, AggregateType, EventDriverAssigned, DriverAssigned{
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		Driver:      *updated.Driver,
	}, snap.Version)
	return &updated, nil
}

// UpdateDeliveryDetails patches driver contact and tracking fields. A driver
// name on an order without a driver creates an assignment.
func (s *Service) UpdateDeliveryDetails(ctx context.Context, orderID string, details DeliveryDetails) (*model.Order, error) {
	now := s.now().UTC()
	var updated model.Order
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		o := snap.Order(orderID)
		if o == nil {
			return ErrOrderNotFound
		}
		if o.Status.Terminal() {
			return fmt.Errorf("%w: order is %s", ErrOrderClosed, o.Status)
		}

		if o.Driver == nil && details.DriverName != nil && strings.TrimSpace(*details.DriverName) != "" {
			o.Driver = &model.DriverAssignment{
				ID:         uuid.New().String(),
				Status:     model.DriverAssigned,
				AssignedAt: now,
			}
		}
		if o.Driver != nil {
			if details.DriverName != nil && strings.TrimSpace(*details.DriverName) != "" {
				o.Driver.Name = strings.TrimSpace(*details.DriverName)
			}
			if details.DriverPhone != nil {
				o.Driver.Phone = strings.TrimSpace(*details.DriverPhone)
			}
		}
		if details.EstimatedDelivery != nil {
			eta := details.EstimatedDelivery.UTC()
			o.EstimatedDelivery = &eta
		}
		if details.TrackingNotes != nil {
			o.TrackingNotes = *details.TrackingNotes
		}
		o.UpdatedAt = now
		updated = *o
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.Emit(ctx, s.publisher, s.logger, updated.ID, AggregateType, EventDeliveryDetailsUpdated, DeliveryDetailsUpdated{
		OrderID:           updated.ID,
		Driver:            updated.Driver,
		EstimatedDelivery: updated.EstimatedDelivery,
		TrackingNotes:     updated.TrackingNotes,
		UpdatedAt:         now,
	}, snap.Version)
	return &updated, nil
}

// UpdateDriverStatus sets the assigned driver's progress. It does not touch
// the order status.
func (s *Service) UpdateDriverStatus(ctx context.Context, orderID string, status model.DriverStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriverStatus, status)
	}

	now := s.now().UTC()
	var (
		updated model.Order
		from    model.DriverStatus
	)
	snap, err := store.Update(ctx, s.repo, func(snap *store.Snapshot) error {
		o := snap.Order(orderID)
		if o == nil {
			return ErrOrderNotFound
		}
		if o.Driver == nil {
			return ErrDriverNotAssigned
		}
		from = o.Driver.Status
		if from == status {
			updated = *o
			return store.ErrNoChange
		}
		o.Driver.Status = status
		o.UpdatedAt = now
		updated = *o
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return &updated, nil
	}
	if err != nil {
		return nil, err
	}

	store.Emit(ctx, s.publisher, s.logger, updated.ID, AggregateType, EventDriverStatusChanged, DriverStatusChanged{
		OrderID:   updated.ID,
		DriverID:  updated.Driver.ID,
		From:      from,
		To:        status,
		ChangedAt: now,
	}, snap.Version)
	return &updated, nil
}

func (s *Service) emitStatusChanged(ctx context.Context, o *model.Order, from model.OrderStatus, at time.Time, version int64) {
	store.Emit(ctx, s.publisher, s.logger, o.ID, AggregateType, EventOrderStatusChanged, OrderStatusChanged{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		From:        from,
		To:          o.Status,
		Total:       o.TotalAmount,
		ChangedAt:   at,
	}, version)
}

func (s *Service) emitInvoice(ctx context.Context, inv *model.Invoice, version int64) {
	if inv == nil {
		return
	}
	s.logger.Info("invoice generated",
		zap.String("invoice", inv.InvoiceNumber),
		zap.String("order_id", inv.OrderID),
		zap.String("total", inv.TotalAmount.StringFixed(2)))
	store.Emit(ctx, s.publisher, s.logger, inv.ID, invoice.AggregateType, invoice.EventInvoiceGenerated,
		invoice.InvoiceGenerated{Invoice: *inv}, version)
}
