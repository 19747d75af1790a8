package command

import (
	"context"
	"testing"

	"github.com/example/marketflow/internal/auth"
	"github.com/example/marketflow/internal/domain/cart"
	"github.com/example/marketflow/internal/domain/invoice"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/domain/order"
	"github.com/example/marketflow/internal/domain/product"
	"github.com/example/marketflow/internal/domain/user"
	"github.com/example/marketflow/internal/infrastructure/store/mocks"
	"github.com/example/marketflow/internal/metrics"
	"github.com/example/marketflow/internal/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	handler  *Handler
	repo     *mocks.MockRepository
	pub      *mocks.MockPublisher
	metrics  *metrics.Metrics
	customer *model.User
}

func newTestHandler(t *testing.T) *testEnv {
	t.Helper()
	repo := mocks.NewMockRepository()
	pub := mocks.NewMockPublisher()
	logger := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())

	userSvc := user.NewService(repo, pub, auth.NewPasswordHasher(bcrypt.MinCost), logger)
	handler := NewHandler(
		product.NewService(repo, pub, logger),
		cart.NewService(repo, pub, logger),
		order.NewService(repo, pub, logger),
		invoice.NewService(repo, pub, logger),
		userSvc,
		query.NewHandler(repo),
		m,
	)

	customer, err := userSvc.Register(context.Background(), "ann@example.com", "password123", "Ann Lee", "555-0100")
	require.NoError(t, err)
	pub.Reset()

	return &testEnv{handler: handler, repo: repo, pub: pub, metrics: m, customer: customer}
}

func (e *testEnv) createProduct(t *testing.T, name, price string) *model.Product {
	t.Helper()
	p, err := e.handler.CreateProduct(context.Background(), CreateProduct{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    10,
		Unit:     "pc",
		Category: "Produce",
	})
	require.NoError(t, err)
	return p
}

func delivery(userID string) PlaceOrder {
	return PlaceOrder{
		UserID:             userID,
		DeliveryAddress:    "1 Market St",
		DeliveryCity:       "Springfield",
		DeliveryPostalCode: "12345",
	}
}

// ============================================
// Product Command Tests
// ============================================

func TestHandler_CreateProduct_Success(t *testing.T) {
	env := newTestHandler(t)

	p := env.createProduct(t, "Apples", "2.49")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Apples", p.Name)
	assert.Equal(t, "2.49", p.Price.StringFixed(2))
	assert.True(t, p.IsActive)
	assert.Equal(t, []string{product.EventProductCreated}, env.pub.EventTypes())
}

func TestHandler_CreateProduct_InvalidPrice(t *testing.T) {
	env := newTestHandler(t)

	_, err := env.handler.CreateProduct(context.Background(), CreateProduct{Name: "Apples", Price: decimal.NewFromInt(-1)})

	assert.ErrorIs(t, err, product.ErrInvalidPrice)
}

func TestHandler_UpdateProductAndStock(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	p := env.createProduct(t, "Apples", "2.49")
	name := "Red Apples"

	updated, err := env.handler.UpdateProduct(ctx, UpdateProduct{ProductID: p.ID, Patch: product.Patch{Name: &name}})
	require.NoError(t, err)
	assert.Equal(t, "Red Apples", updated.Name)

	stocked, err := env.handler.UpdateStock(ctx, UpdateStock{ProductID: p.ID, Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, stocked.Stock)

	require.NoError(t, env.handler.DeleteProduct(ctx, DeleteProduct{ProductID: p.ID}))
	_, err = env.handler.UpdateStock(ctx, UpdateStock{ProductID: p.ID, Stock: 1})
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

// ============================================
// Cart Command Tests
// ============================================

func TestHandler_CartLifecycle(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	p := env.createProduct(t, "Apples", "2.49")

	c, err := env.handler.AddToCart(ctx, AddToCart{UserID: env.customer.ID, ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, c.TotalItems)

	c, err = env.handler.UpdateCartItem(ctx, UpdateCartItem{UserID: env.customer.ID, ProductID: p.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, "12.45", c.TotalPrice.StringFixed(2))

	c, err = env.handler.RemoveFromCart(ctx, RemoveFromCart{UserID: env.customer.ID, ProductID: p.ID})
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	require.NoError(t, env.handler.ClearCart(ctx, ClearCart{UserID: env.customer.ID}))
}

func TestHandler_AddToCart_ProductNotFound(t *testing.T) {
	env := newTestHandler(t)

	_, err := env.handler.AddToCart(context.Background(), AddToCart{UserID: env.customer.ID, ProductID: "missing", Quantity: 1})

	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

// ============================================
// Place Order Tests
// ============================================

func TestHandler_PlaceOrder_FromCart(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	p := env.createProduct(t, "Bread", "10")
	_, err := env.handler.AddToCart(ctx, AddToCart{UserID: env.customer.ID, ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	o, err := env.handler.PlaceOrder(ctx, delivery(env.customer.ID))

	require.NoError(t, err)
	assert.Equal(t, "20.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, "Ann Lee", o.Customer.FullName)
	assert.Equal(t, "ann@example.com", o.Customer.Email)
	assert.Equal(t, "555-0100", o.Customer.Phone)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.OrdersPlaced))

	c, err := query.NewHandler(env.repo).GetCart(ctx, env.customer.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestHandler_PlaceOrder_ExplicitLinesUseCatalogPrice(t *testing.T) {
	env := newTestHandler(t)
	p := env.createProduct(t, "Cheese", "4.25")

	cmd := delivery(env.customer.ID)
	cmd.Items = []OrderLine{{ProductID: p.ID, Quantity: 3}}
	o, err := env.handler.PlaceOrder(context.Background(), cmd)

	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Cheese", o.Items[0].ProductName)
	assert.Equal(t, "Produce", o.Items[0].Category)
	assert.Equal(t, "12.75", o.TotalAmount.StringFixed(2))
}

func TestHandler_PlaceOrder_UnknownProduct(t *testing.T) {
	env := newTestHandler(t)

	cmd := delivery(env.customer.ID)
	cmd.Items = []OrderLine{{ProductID: "missing", Quantity: 1}}
	o, err := env.handler.PlaceOrder(context.Background(), cmd)

	assert.ErrorIs(t, err, ErrUnknownProduct)
	assert.Nil(t, o)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.OrdersPlaced))
}

func TestHandler_PlaceOrder_InactiveProduct(t *testing.T) {
	env := newTestHandler(t)
	inactive := false
	p, err := env.handler.CreateProduct(context.Background(), CreateProduct{Name: "Old", Price: decimal.NewFromInt(1), IsActive: &inactive})
	require.NoError(t, err)

	cmd := delivery(env.customer.ID)
	cmd.Items = []OrderLine{{ProductID: p.ID, Quantity: 1}}
	_, err = env.handler.PlaceOrder(context.Background(), cmd)

	assert.ErrorIs(t, err, cart.ErrProductUnavailable)
}

func TestHandler_PlaceOrder_EmptyCart(t *testing.T) {
	env := newTestHandler(t)

	_, err := env.handler.PlaceOrder(context.Background(), delivery(env.customer.ID))

	assert.ErrorIs(t, err, order.ErrEmptyOrder)
}

func TestHandler_PlaceOrder_CartItemAddedDuringCheckout(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	bread := env.createProduct(t, "Bread", "3")
	milk := env.createProduct(t, "Milk", "2")
	_, err := env.handler.AddToCart(ctx, AddToCart{UserID: env.customer.ID, ProductID: bread.ID, Quantity: 1})
	require.NoError(t, err)

	added := false
	env.repo.BeforeSave = func(ctx context.Context) {
		if added {
			return
		}
		added = true
		_, err := env.handler.AddToCart(ctx, AddToCart{UserID: env.customer.ID, ProductID: milk.ID, Quantity: 1})
		require.NoError(t, err)
	}

	o, err := env.handler.PlaceOrder(ctx, delivery(env.customer.ID))
	require.NoError(t, err)
	env.repo.BeforeSave = nil

	c, err := query.NewHandler(env.repo).GetCart(ctx, env.customer.ID)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, item := range o.Items {
		names[item.ProductName] = true
	}
	for _, item := range c.Items {
		names[item.Name] = true
	}
	assert.True(t, names["Bread"])
	assert.True(t, names["Milk"], "milk must be ordered or still in the cart")
}

func TestHandler_PlaceOrder_UnknownUser(t *testing.T) {
	env := newTestHandler(t)

	_, err := env.handler.PlaceOrder(context.Background(), delivery("ghost"))

	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

// ============================================
// Order Workflow Tests
// ============================================

func placeOne(t *testing.T, env *testEnv, price string, qty int) *model.Order {
	t.Helper()
	p := env.createProduct(t, "Item", price)
	cmd := delivery(env.customer.ID)
	cmd.Items = []OrderLine{{ProductID: p.ID, Quantity: qty}}
	o, err := env.handler.PlaceOrder(context.Background(), cmd)
	require.NoError(t, err)
	return o
}

func TestHandler_UpdateOrderStatus_CountsTransitionsAndInvoices(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	o := placeOne(t, env, "5", 2)

	_, inv, err := env.handler.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: model.OrderDelivered})
	require.NoError(t, err)
	require.NotNil(t, inv)

	_, again, err := env.handler.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: model.OrderDelivered})
	require.NoError(t, err)
	assert.Nil(t, again)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.OrderTransitions.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.InvoicesGenerated))
}

func TestHandler_UpdateOrderStatus_LoadsOnce(t *testing.T) {
	env := newTestHandler(t)
	o := placeOne(t, env, "5", 1)
	loads := env.repo.LoadCalls

	_, _, err := env.handler.UpdateOrderStatus(context.Background(), UpdateOrderStatus{OrderID: o.ID, Status: model.OrderConfirmed})

	require.NoError(t, err)
	assert.Equal(t, loads+1, env.repo.LoadCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.OrderTransitions.WithLabelValues("confirmed")))
}

func TestHandler_UpdateOrderStatus_NotFound(t *testing.T) {
	env := newTestHandler(t)

	_, _, err := env.handler.UpdateOrderStatus(context.Background(), UpdateOrderStatus{OrderID: "missing", Status: model.OrderConfirmed})

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestHandler_AdjustOrderItems_MarkDelivered(t *testing.T) {
	env := newTestHandler(t)
	o := placeOne(t, env, "4.25", 3)

	updated, inv, err := env.handler.AdjustOrderItems(context.Background(), AdjustOrderItems{
		OrderID:       o.ID,
		Adjustments:   []order.Adjustment{{ItemID: o.Items[0].ID, DeliveredQty: 2, Reason: "damaged"}},
		MarkDelivered: true,
	})

	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, updated.Status)
	require.NotNil(t, inv)
	assert.Equal(t, "8.50", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.InvoicesGenerated))
}

func TestHandler_AdjustOrderItems_MarkDeliveredRetry(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	o := placeOne(t, env, "2", 1)
	cmd := AdjustOrderItems{OrderID: o.ID, MarkDelivered: true}

	_, inv, err := env.handler.AdjustOrderItems(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, inv)

	updated, again, err := env.handler.AdjustOrderItems(ctx, cmd)

	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, model.OrderDelivered, updated.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.OrderTransitions.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.InvoicesGenerated))
}

func TestHandler_DriverCommands(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	o := placeOne(t, env, "1", 1)

	assigned, err := env.handler.AssignDriver(ctx, AssignDriver{OrderID: o.ID, Name: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", assigned.Driver.Name)

	notes := "Ring twice"
	detailed, err := env.handler.UpdateDeliveryDetails(ctx, UpdateDeliveryDetails{
		OrderID:         o.ID,
		DeliveryDetails: order.DeliveryDetails{TrackingNotes: &notes},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ring twice", detailed.TrackingNotes)

	moving, err := env.handler.UpdateDriverStatus(ctx, UpdateDriverStatus{OrderID: o.ID, Status: model.DriverPickedUp})
	require.NoError(t, err)
	assert.Equal(t, model.DriverPickedUp, moving.Driver.Status)
}

// ============================================
// Invoice Command Tests
// ============================================

func TestHandler_UpdateInvoiceStatus(t *testing.T) {
	env := newTestHandler(t)
	ctx := context.Background()
	o := placeOne(t, env, "5", 1)
	_, inv, err := env.handler.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: model.OrderDelivered})
	require.NoError(t, err)

	paid, err := env.handler.UpdateInvoiceStatus(ctx, UpdateInvoiceStatus{InvoiceID: inv.ID, Status: model.InvoicePaid})

	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, paid.Status)
	assert.NotNil(t, paid.PaidDate)
}

func TestHandler_MarkOverdueInvoices_NothingDue(t *testing.T) {
	env := newTestHandler(t)

	n, err := env.handler.MarkOverdueInvoices(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.InvoicesOverdue))
}
