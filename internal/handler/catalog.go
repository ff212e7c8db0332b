package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/smartfit-shop/internal/domain/catalog"
)

// pathID parses the positive integer {id} route parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.items.List(r.Context(), catalog.Filter{
		Category:     catalog.Category(q.Get("category")),
		Search:       strings.TrimSpace(q.Get("search")),
		FeaturedOnly: strings.EqualFold(q.Get("featured"), "true"),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Products retrieved successfully", encodeItems(items))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		fail(w, r, catalog.ErrNotFound)
		return
	}
	it, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Product details retrieved successfully", func(e *jx.Encoder) {
		encodeItem(e, it, true)
	})
}
