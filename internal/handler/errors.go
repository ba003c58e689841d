package handler

import (
	"errors"
	"net/http"

	"campuseats/internal/domain"
)

// respondError maps service errors to HTTP statuses. Provider internals are
// never leaked to clients; authorization failures stay distinct from
// not-found so a wrong tenant is not mistaken for a missing order.
func respondError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrWrongCafeteria):
		return http.StatusForbidden, domain.ErrWrongCafeteria.Error()
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrItemUnavailable),
		errors.Is(err, domain.ErrTotalMismatch),
		errors.Is(err, domain.ErrMixedCafeterias),
		errors.Is(err, domain.ErrPhoneRequired),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrOrderNotPending),
		errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusBadRequest, "payment was not accepted"
	case errors.Is(err, domain.ErrRailUnavailable):
		return http.StatusBadGateway, "payment provider is unavailable, please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
