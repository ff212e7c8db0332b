package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/smartfit-shop/internal/domain/order"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var s order.Shipping
	fields := map[string]*string{
		"full_name":   &s.FullName,
		"email":       &s.Email,
		"phone":       &s.Phone,
		"address":     &s.Address,
		"city":        &s.City,
		"postal_code": &s.PostalCode,
		"country":     &s.Country,
		"notes":       &s.Notes,
	}
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		dst, ok := fields[key]
		if !ok {
			return d.Skip()
		}
		v, err := readString(d, key)
		*dst = v
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	o, err := h.checkout.Checkout(r.Context(), userID(r), s)
	if err != nil {
		failBadItem(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Order placed successfully", func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
