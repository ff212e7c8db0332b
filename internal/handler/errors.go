package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
	"github.com/xenking/smartfit-shop/internal/domain/checkout"
	"github.com/xenking/smartfit-shop/internal/domain/order"
)

// fail maps domain errors to their HTTP form. Anything unrecognised is
// logged and reported as a bare 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fields   fieldErrors
		shipping *checkout.ValidationError
		stock    *catalog.InsufficientStockError
	)
	switch {
	case errors.Is(err, errMalformedBody):
		writeError(w, http.StatusBadRequest, "Malformed JSON body.")
	case errors.As(err, &fields):
		writeFieldErrors(w, http.StatusBadRequest, "Invalid request data.", fields)
	case errors.As(err, &shipping):
		writeFieldErrors(w, http.StatusBadRequest, "Invalid shipping details.", shipping.Fields)
	case errors.As(err, &stock):
		writeError(w, http.StatusBadRequest, stock.Error())
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "Quantity must be at least 1")
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "Your cart is empty")
	case errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, "Cart item not found.")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found.")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found.")
	default:
		zctx.From(r.Context()).Error("Handler error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// failBadItem reports an unknown or inactive item as a client error for
// operations where the item comes from the request body or the cart.
func failBadItem(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Product not found.")
		return
	}
	fail(w, r, err)
}
