package handler

import (
	"maps"
	"net/http"
	"slices"

	"github.com/go-faster/jx"
)

// writeData writes the success envelope {"message": msg, "data": ...}.
func writeData(w http.ResponseWriter, status int, msg string, data func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("data", data)
	})
	writeJSON(w, status, e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, e.Bytes())
}

// writeFieldErrors writes {"error": msg, "fields": {...}} with fields in
// name order.
func writeFieldErrors(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("fields", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range slices.Sorted(maps.Keys(fields)) {
					e.Field(name, func(e *jx.Encoder) { e.Str(fields[name]) })
				}
			})
		})
	})
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
