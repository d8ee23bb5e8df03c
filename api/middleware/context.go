package middleware

import (
	"context"

	"github.com/compunet/storefront/internal/shopper"
	"github.com/compunet/storefront/pkg/auth"
	pkgerrors "github.com/compunet/storefront/pkg/errors"
)

type contextKey string

const (
	ctxSessionID  contextKey = "session_id"
	ctxShopper    contextKey = "shopper"
	ctxCredential contextKey = "credential"
)

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// ShopperFromContext returns the session-scoped service attached by Shopper.
func ShopperFromContext(ctx context.Context) *shopper.Service {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxShopper).(*shopper.Service); ok {
		return v
	}
	return nil
}

// RequireShopper is ShopperFromContext for handlers mounted behind Shopper. A
// missing service is a wiring fault and reported as INTERNAL_ERROR.
func RequireShopper(ctx context.Context) (*shopper.Service, error) {
	svc := ShopperFromContext(ctx)
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shopper session missing from request context")
	}
	return svc, nil
}

func CredentialFromContext(ctx context.Context) auth.Credential {
	if ctx == nil {
		return auth.Credential{}
	}
	if v, ok := ctx.Value(ctxCredential).(auth.Credential); ok {
		return v
	}
	return auth.Credential{}
}

// WithShopper injects the shopper service and its session id into the context.
func WithShopper(ctx context.Context, svc *shopper.Service) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if svc == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxSessionID, svc.ID())
	return context.WithValue(ctx, ctxShopper, svc)
}

// WithCredential injects the bearer credential into the context.
func WithCredential(ctx context.Context, cred auth.Credential) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCredential, cred)
}
