package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/gosuda/escrow-admin/internal/domain"
)

// Origin records the client address and user agent for the audit trail. Mount
// it after chi's RealIP so proxied addresses are resolved.
func Origin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			origin := domain.Origin{IPAddress: ip, UserAgent: r.UserAgent()}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextKeyOrigin, origin)))
		})
	}
}
