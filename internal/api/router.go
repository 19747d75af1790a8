package api

import (
	"net/http"
	"time"

	"github.com/example/marketflow/internal/api/middleware"
	"github.com/example/marketflow/internal/auth"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/example/marketflow/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestTimeout bounds every request handled by the router.
const RequestTimeout = 15 * time.Second

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, middleware.Observe(logger, m), chimw.Recoverer)
	r.Use(chimw.Timeout(RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	authn := middleware.Authenticate(jwtService)
	admin := middleware.RequireRole(model.RoleAdmin)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandlers.Register)
		r.Post("/login", authHandlers.Login)
		r.Post("/refresh", authHandlers.Refresh)
		r.With(middleware.OptionalAuthenticate(jwtService)).Post("/logout", authHandlers.Logout)
		r.With(authn).Get("/me", authHandlers.Me)
	})

	r.Route("/products", func(r chi.Router) {
		r.With(middleware.OptionalAuthenticate(jwtService)).Get("/", handlers.GetProducts)
		r.Get("/{id}", handlers.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authn, admin)
			r.Post("/", handlers.CreateProduct)
			r.Patch("/{id}", handlers.UpdateProduct)
			r.Delete("/{id}", handlers.DeleteProduct)
			r.Put("/{id}/stock", handlers.UpdateStock)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", handlers.GetCart)
		r.Delete("/", handlers.ClearCart)
		r.Post("/items", handlers.AddToCart)
		r.Patch("/items/{productID}", handlers.UpdateCartItem)
		r.Delete("/items/{productID}", handlers.RemoveFromCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(authn)
		r.Post("/", handlers.PlaceOrder)
		r.Get("/me", handlers.GetMyOrders)
		r.Get("/{id}", handlers.GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/", handlers.GetAllOrders)
			r.Patch("/{id}/status", handlers.UpdateOrderStatus)
			r.Post("/{id}/adjustments", handlers.AdjustOrderItems)
			r.Put("/{id}/driver", handlers.AssignDriver)
			r.Patch("/{id}/delivery", handlers.UpdateDeliveryDetails)
			r.Patch("/{id}/driver/status", handlers.UpdateDriverStatus)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authn, admin)
		r.Get("/deliveries", handlers.GetDeliveries)
		r.Get("/drivers/{name}/orders", handlers.GetDriverOrders)
		r.Get("/invoices", handlers.GetInvoices)
		r.Patch("/invoices/{id}/status", handlers.UpdateInvoiceStatus)
		r.Get("/admin/stats", handlers.GetAdminStats)
		r.Get("/admin/customers", handlers.GetCustomers)
	})

	return r
}
