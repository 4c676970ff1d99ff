package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"nexcv-backend/pkg/logging"
)

// DevUserID is the fixed sentinel identity used when dev-mode auth is
// enabled and no token is presented. It can never collide with a real
// provider subject and is flagged in logs wherever it is used.
const DevUserID = "dev-user-000000000000"

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the resolved caller.
type Identity struct {
	UserID string
	Dev    bool
}

type ctxKey int

const identityKey ctxKey = iota

// Resolver validates bearer tokens from the external identity provider.
// Tokens are HS256 JWTs whose subject is the user id.
type Resolver struct {
	secret      []byte
	devFallback bool
}

func NewResolver(secret string, devFallback bool) *Resolver {
	return &Resolver{
		secret:      []byte(secret),
		devFallback: devFallback,
	}
}

// Resolve extracts the caller identity from the request. With no
// Authorization header, dev-mode falls back to the sentinel identity;
// otherwise the request is unauthorized.
func (r *Resolver) Resolve(req *http.Request) (Identity, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		if r.devFallback {
			return Identity{UserID: DevUserID, Dev: true}, nil
		}
		return Identity{}, ErrUnauthorized
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Identity{}, fmt.Errorf("%w: malformed Authorization header", ErrUnauthorized)
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token: %v", ErrUnauthorized, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	return Identity{UserID: sub}, nil
}

// Middleware resolves the caller and stores the identity in the request
// context. Unauthorized requests are rejected with 401.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			identity, err := resolver.Resolve(req)
			if err != nil {
				logging.L(req.Context()).Warn("auth failed", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}

			ctx := WithIdentity(req.Context(), identity)
			ctx = logging.WithFields(ctx, zap.String("user_id", identity.UserID))
			if identity.Dev {
				logging.L(ctx).Debug("using development identity")
			}

			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// WithIdentity stores an identity in the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// FromContext returns the identity placed by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// UserID returns the caller's user id, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	identity, _ := FromContext(ctx)
	return identity.UserID
}
