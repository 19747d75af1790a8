package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/marketflow/internal/auth"
	"github.com/example/marketflow/internal/command"
	"github.com/example/marketflow/internal/domain/cart"
	"github.com/example/marketflow/internal/domain/invoice"
	"github.com/example/marketflow/internal/domain/order"
	"github.com/example/marketflow/internal/domain/product"
	"github.com/example/marketflow/internal/domain/user"
	"github.com/example/marketflow/internal/infrastructure/store"
	"go.uber.org/zap"
)

var errForbidden = errors.New("forbidden")

var statusByError = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{
		product.ErrProductNotFound, order.ErrOrderNotFound, invoice.ErrInvoiceNotFound,
		user.ErrUserNotFound, cart.ErrItemNotInCart,
	}},
	{http.StatusBadRequest, []error{
		product.ErrInvalidName, product.ErrInvalidPrice, product.ErrInvalidStock,
		cart.ErrInvalidQuantity, cart.ErrInvalidProduct, cart.ErrProductUnavailable,
		order.ErrEmptyOrder, order.ErrInvalidQuantity, order.ErrMissingCustomer, order.ErrMissingDelivery,
		order.ErrInvalidPaymentMethod, order.ErrUnknownStatus, order.ErrInvalidDriver, order.ErrUnknownDriverStatus,
		invoice.ErrUnknownStatus,
		user.ErrInvalidEmail, user.ErrInvalidName, user.ErrInvalidRole, auth.ErrPasswordTooShort,
		command.ErrUnknownProduct,
	}},
	{http.StatusConflict, []error{
		order.ErrInvalidTransition, order.ErrOrderClosed, order.ErrDriverNotAssigned,
		invoice.ErrInvalidTransition, user.ErrEmailTaken, store.ErrTooManyConflicts,
	}},
	{http.StatusUnauthorized, []error{
		user.ErrInvalidCredentials, auth.ErrInvalidToken, auth.ErrExpiredToken,
	}},
	{http.StatusForbidden, []error{errForbidden}},
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	for _, group := range statusByError {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr hides internal error text behind a generic message.
func respondErr(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		respondJSONError(w, "internal server error", status)
		return
	}
	respondJSONError(w, err.Error(), status)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
