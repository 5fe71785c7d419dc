package chi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/domain/access"
	logpkg "github.com/kailas-cloud/scaledex/internal/logger"
)

type identityKey struct{}

// IdentityConfig controls how callers are resolved.
// UserHeader is honored only when set; the proxy in front must strip it from client requests.
type IdentityConfig struct {
	APIKeys    []string
	UserHeader string
}

// IdentityMiddleware resolves the caller identity and stores it in the request context.
// A configured trusted user header or a valid Bearer key authenticates the caller; everyone else
// is anonymous, keyed by client IP. A Bearer token that matches no key is rejected.
// Run after middleware.RealIP so RemoteAddr holds the client address.
func IdentityMiddleware(cfg IdentityConfig) func(http.Handler) http.Handler {
	header := cfg.UserHeader
	validKeys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := resolve(r, header, validKeys)
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}
			ctx := context.WithValue(r.Context(), identityKey{}, id)
			ctx = logpkg.With(ctx, zap.Bool("authenticated", id.IsAuthenticated()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(r *http.Request, header string, validKeys map[string]struct{}) (access.Identity, bool) {
	if header != "" {
		if user := strings.TrimSpace(r.Header.Get(header)); user != "" {
			return access.Authenticated(user), true
		}
	}

	const bearerPrefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
		token := auth[len(bearerPrefix):]
		if _, ok := validKeys[token]; !ok {
			return access.Identity{}, false
		}
		return access.Authenticated("key:" + keyFingerprint(token)), true
	}

	return access.Anonymous(clientIP(r)), true
}

// keyFingerprint keeps raw keys out of identities and logs.
func keyFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IdentityFromContext returns the caller stored by IdentityMiddleware.
// Requests that bypassed the middleware are anonymous with an empty key.
func IdentityFromContext(ctx context.Context) access.Identity {
	if id, ok := ctx.Value(identityKey{}).(access.Identity); ok {
		return id
	}
	return access.Anonymous("")
}
