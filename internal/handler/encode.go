package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/smartfit-shop/internal/domain/cart"
	"github.com/xenking/smartfit-shop/internal/domain/catalog"
	"github.com/xenking/smartfit-shop/internal/domain/order"
)

// Money is always rendered as a string with two decimal places.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func str(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func money(e *jx.Encoder, name string, d decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { encodeMoney(e, d) })
}

func timestamp(e *jx.Encoder, name string, t time.Time) {
	e.Field(name, func(e *jx.Encoder) { encodeTime(e, t) })
}

// encodeItem writes the listing form of an item. The detail form adds the
// stock level and the update time.
func encodeItem(e *jx.Encoder, it *catalog.Item, detail bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
		str(e, "name", it.Name)
		str(e, "description", it.Description)
		str(e, "category", string(it.Category))
		str(e, "category_display", it.Category.Display())
		money(e, "price", it.Price)
		e.Field("discount_price", func(e *jx.Encoder) {
			if it.DiscountPrice == nil {
				e.Null()
				return
			}
			encodeMoney(e, *it.DiscountPrice)
		})
		money(e, "discount_percentage", it.DiscountPercentage())
		money(e, "final_price", it.EffectivePrice())
		if detail {
			e.Field("stock", func(e *jx.Encoder) { e.Int(it.Stock) })
		}
		e.Field("is_featured", func(e *jx.Encoder) { e.Bool(it.Featured) })
		e.Field("is_active", func(e *jx.Encoder) { e.Bool(it.Active) })
		timestamp(e, "created_at", it.CreatedAt)
		if detail {
			timestamp(e, "updated_at", it.UpdatedAt)
		}
	})
}

func encodeItems(items []catalog.Item) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range items {
				encodeItem(e, &items[i], false)
			}
		})
	}
}

func encodeCart(v *cart.View) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Int64(v.Cart.ID) })
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range v.Lines {
						l := &v.Lines[i]
						e.Obj(func(e *jx.Encoder) {
							e.Field("id", func(e *jx.Encoder) { e.Int64(l.ID) })
							e.Field("item", func(e *jx.Encoder) { encodeItem(e, &l.Item, false) })
							e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
							money(e, "total_price", l.Total())
							timestamp(e, "created_at", l.CreatedAt)
						})
					}
				})
			})
			money(e, "total", v.Total())
			e.Field("items_count", func(e *jx.Encoder) { e.Int(v.ItemCount()) })
			timestamp(e, "created_at", v.Cart.CreatedAt)
			timestamp(e, "updated_at", v.Cart.UpdatedAt)
		})
	}
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", o.ID.String())
		str(e, "full_name", o.Shipping.FullName)
		str(e, "email", o.Shipping.Email)
		str(e, "phone", o.Shipping.Phone)
		str(e, "address", o.Shipping.Address)
		str(e, "city", o.Shipping.City)
		str(e, "postal_code", o.Shipping.PostalCode)
		str(e, "country", o.Shipping.Country)
		money(e, "total_amount", o.Total)
		str(e, "status", string(o.Status))
		str(e, "status_display", o.Status.Display())
		str(e, "notes", o.Shipping.Notes)
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range o.Lines {
					l := &o.Lines[i]
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Int64(l.ID) })
						e.Field("item_id", func(e *jx.Encoder) { e.Int64(l.ItemID) })
						str(e, "item_name", l.ItemName)
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						money(e, "price", l.Price)
						money(e, "total_price", l.Total())
					})
				}
			})
		})
		timestamp(e, "created_at", o.CreatedAt)
		timestamp(e, "updated_at", o.UpdatedAt)
	})
}

func encodeOrders(orders []order.Order) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	}
}
