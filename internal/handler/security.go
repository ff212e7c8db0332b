package handler

import (
	"net/http"

	"github.com/xenking/smartfit-shop/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

// authenticate resolves the API key to a user id and stores it in the
// request context. Requests without a valid key get 401.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.authn.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided or are invalid.")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), userID)))
	})
}

// userID returns the id stored by authenticate.
func userID(r *http.Request) string {
	id, _ := auth.UserFromContext(r.Context())
	return id
}
