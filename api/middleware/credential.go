package middleware

import (
	"net/http"
	"time"

	"github.com/compunet/storefront/pkg/auth"
	"github.com/compunet/storefront/pkg/logger"
)

// Credential reads the optional bearer token. Missing or non-bearer headers
// leave the request anonymous; the commerce API decides what is allowed.
func Credential(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred := auth.FromHeader(r.Header.Get("Authorization"))
			ctx := r.Context()
			if !cred.IsZero() && logg != nil {
				if cred.Subject != "" {
					ctx = logg.WithUserID(ctx, cred.Subject)
				}
				if cred.Expired(time.Now()) {
					logg.Warn(ctx, "credential.expired")
				}
			}
			next.ServeHTTP(w, r.WithContext(WithCredential(ctx, cred)))
		})
	}
}
