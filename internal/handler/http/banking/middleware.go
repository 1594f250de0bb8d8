package banking_http

import (
	"context"
	"net/http"
	"strconv"
)

const UserIDHeader = "X-User-ID"

type principalKey struct{}

func (h *Handler) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get(UserIDHeader), 10, 64)
		if err != nil || userID <= 0 {
			h.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "UNAUTHENTICATED"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, userID)))
	})
}

func principal(r *http.Request) int64 {
	userID, _ := r.Context().Value(principalKey{}).(int64)
	return userID
}
