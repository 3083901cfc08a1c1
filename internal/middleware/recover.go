package middleware

import (
	"log/slog"
	"net/http"

	"github.com/cardrelay/cardrelay/internal/api/httpx"
)

func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic", "err", rec)
				httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{"status": 0, "message": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
