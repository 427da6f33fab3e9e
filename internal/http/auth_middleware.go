package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/karming-leong/datacentric-assingment/internal/apperr"
	"github.com/karming-leong/datacentric-assingment/internal/domain"
)

type authContextKey string

const contextKeyIdentity authContextKey = "supplies-identity"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid bearer token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header and stores the caller identity.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		r.writeAppError(w, req, apperr.Authentication(err))
		return req.Context(), false
	}
	identity, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		r.writeAppError(w, req, err)
		return req.Context(), false
	}
	return withIdentity(req.Context(), identity), true
}

func withIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// identityFromContext returns the verified caller of the request.
func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(domain.Identity)
	if !ok || !identity.Valid() {
		return domain.Identity{}, false
	}
	return identity, true
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
