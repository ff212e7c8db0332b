package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/smartfit-shop/internal/domain/order"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Orders retrieved successfully", encodeOrders(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, order.ErrNotFound)
		return
	}
	o, err := h.orders.Get(r.Context(), userID(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Order details retrieved successfully", func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
