package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/cue-club/services"
)

// GetStaffClaimsFromContext возвращает claims, сохраненные Authenticate.
func GetStaffClaimsFromContext(ctx context.Context) (*services.StaffClaims, error) {
	claims, ok := ctx.Value(userContextKey).(*services.StaffClaims)
	if !ok || claims == nil {
		return nil, errors.New("staff claims not found in context")
	}
	return claims, nil
}

// Audit логирует каждый запрос персонала, дошедший до обработчиков.
func Audit(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := ""
			if claims, err := GetStaffClaimsFromContext(r.Context()); err == nil {
				name = claims.Name
			}
			logger.InfoContext(r.Context(), "Staff action",
				slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("staff", name))
			next.ServeHTTP(w, r)
		})
	}
}
