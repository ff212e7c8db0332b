// Package handler serves the shop HTTP API on a chi router. Every route
// requires an API key and answers with the {"message","data"} envelope on
// success or {"error"} on failure.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xenking/smartfit-shop/internal/domain/auth"
	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
	"github.com/xenking/smartfit-shop/internal/domain/checkout"
	"github.com/xenking/smartfit-shop/internal/domain/order"
)

// Handler implements the shop API on top of the domain services.
type Handler struct {
	items    catalog.Repository
	carts    *cart.Service
	checkout *checkout.Service
	orders   *order.Service
	authn    *auth.Authenticator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	items catalog.Repository,
	carts *cart.Service,
	checkoutService *checkout.Service,
	orders *order.Service,
	authn *auth.Authenticator,
) *Handler {
	return &Handler{
		items:    items,
		carts:    carts,
		checkout: checkoutService,
		orders:   orders,
		authn:    authn,
	}
}

// Routes returns the API router. It is meant to be mounted under /api.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)

		r.Get("/cart", h.getCart)
		r.Post("/cart/items", h.addCartItem)
		r.Patch("/cart/items/{id}", h.updateCartItem)
		r.Delete("/cart/items/{id}", h.removeCartItem)

		r.Post("/checkout", h.placeOrder)

		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
	})
	return r
}
