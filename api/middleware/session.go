package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/compunet/storefront/api/responses"
	"github.com/compunet/storefront/internal/shopper"
	"github.com/compunet/storefront/pkg/config"
	pkgerrors "github.com/compunet/storefront/pkg/errors"
	"github.com/compunet/storefront/pkg/logger"
)

const sessionHeader = "X-Session-Id"

type sessionSource int

const (
	sessionMinted sessionSource = iota
	sessionFromHeader
	sessionFromCookie
)

// ShopperRegistry resolves the service for a shopper session.
type ShopperRegistry interface {
	Get(ctx context.Context, sessionID string) (*shopper.Service, error)
}

// Shopper resolves the caller's session from the X-Session-Id header or the
// session cookie, minting a new id when neither carries a valid uuid, and
// attaches the session's service to the request context. Cookie sessions get
// a fresh cookie on every request so the idle TTL slides with activity.
func Shopper(registry ShopperRegistry, cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "sf_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, source := sessionIDFromRequest(r, cookieName)
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
				if source == sessionMinted {
					logg.Debug(ctx, "shopper.session.minted")
				}
			}

			svc, err := registry.Get(ctx, sessionID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shopper session"))
				return
			}

			w.Header().Set(sessionHeader, sessionID)
			if source != sessionFromHeader {
				cookie := &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					Secure:   r.TLS != nil,
				}
				if cfg.IdleTTL > 0 {
					cookie.MaxAge = int(cfg.IdleTTL.Seconds())
				}
				http.SetCookie(w, cookie)
			}

			next.ServeHTTP(w, r.WithContext(WithShopper(ctx, svc)))
		})
	}
}

func sessionIDFromRequest(r *http.Request, cookieName string) (string, sessionSource) {
	if id, ok := parseSessionID(r.Header.Get(sessionHeader)); ok {
		return id, sessionFromHeader
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		if id, ok := parseSessionID(cookie.Value); ok {
			return id, sessionFromCookie
		}
	}
	return uuid.NewString(), sessionMinted
}

func parseSessionID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
