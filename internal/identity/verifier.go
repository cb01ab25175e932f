package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/motocaz/xtractor-backend/libs/auth"
)

type ctxKey int

const ctxKeyUserID ctxKey = iota

// UserID returns the verified caller identity, empty when the request was not
// authenticated.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}

// WithUserID is exported for handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

type VerifierConfig struct {
	JWKSURL  string
	JWKSTTL  time.Duration
	HSSecret string // dev fallback when no JWKS endpoint is configured
}

// Verifier validates identity-provider bearer tokens. RS256 tokens are checked
// against the provider's JWKS endpoint; HS256 is a local development fallback.
type Verifier struct {
	jwks     *auth.JWKSClient
	hsSecret string
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	v := &Verifier{hsSecret: cfg.HSSecret}
	if strings.TrimSpace(cfg.JWKSURL) != "" {
		v.jwks = auth.NewJWKSClient(cfg.JWKSURL, cfg.JWKSTTL)
	}
	return v
}

func (v *Verifier) VerifyToken(token string) (*auth.Claims, error) {
	if v.jwks != nil {
		header, err := auth.ParseHeader(token)
		if err != nil {
			return nil, err
		}
		if header.Alg == "RS256" && header.Kid != "" {
			pub, err := v.jwks.Get(header.Kid)
			if err != nil {
				return nil, err
			}
			return auth.VerifyRS256(token, pub)
		}
	}
	return auth.ParseAndVerifyHS256(token, v.hsSecret)
}

// Require rejects requests without a valid bearer token and stores the
// verified subject in the request context.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := v.VerifyToken(token)
		if err != nil || claims.Sub == "" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.Sub)))
	})
}
