package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/smartfit-shop/internal/domain/cart"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.Get(r.Context(), userID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Cart retrieved successfully", encodeCart(v))
}

// addCartItem accepts {"item_id", "quantity"}. "product_id" is read as an
// alias of "item_id"; quantity defaults to 1.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		itemID  int
		hasItem bool
		qty     = 1
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "item_id", "product_id":
			id, ok, err := readInt(d, key)
			if err != nil {
				return err
			}
			itemID, hasItem = id, ok
		case "quantity":
			n, ok, err := readInt(d, key)
			if err != nil {
				return err
			}
			if ok {
				qty = n
			}
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if !hasItem {
		fail(w, r, fieldErrors{"item_id": "This field is required."})
		return
	}

	v, created, err := h.carts.AddItem(r.Context(), userID(r), int64(itemID), qty)
	if err != nil {
		failBadItem(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeData(w, status, addedMessage(v, int64(itemID)), encodeCart(v))
}

// addedMessage names the item that was just added.
func addedMessage(v *cart.View, itemID int64) string {
	for _, l := range v.Lines {
		if l.Item.ID == itemID {
			return l.Item.Name + " added to cart"
		}
	}
	return "Item added to cart"
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(r)
	if !ok {
		fail(w, r, cart.ErrLineNotFound)
		return
	}

	qty := 0
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		n, _, err := readInt(d, key)
		qty = n
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	v, err := h.carts.UpdateQuantity(r.Context(), userID(r), lineID, qty)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Cart item updated", encodeCart(v))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(r)
	if !ok {
		fail(w, r, cart.ErrLineNotFound)
		return
	}
	v, err := h.carts.RemoveLine(r.Context(), userID(r), lineID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Item removed from cart", encodeCart(v))
}
