package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/logging"
)

// AccessTokenCookie and RefreshTokenCookie name the session cookies.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type accountKey struct{}

// TokenVerifier resolves an access token to the account it was issued for.
type TokenVerifier interface {
	AccountID(accessToken string) (string, error)
}

// Authenticator extracts the caller from the access token cookie or a bearer header.
type Authenticator struct {
	tokens TokenVerifier
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(tokens TokenVerifier) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// RequireAuth rejects requests without a valid access token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized request")
			return
		}
		accountID, err := a.tokens.AccountID(token)
		if err != nil {
			logging.FromContext(r.Context()).Debug("access token rejected", slog.Any("error", err))
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
	})
}

// OptionalAuth attaches the caller when a valid token is present and
// otherwise serves the request anonymously.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := accessToken(r); token != "" {
			if accountID, err := a.tokens.AccountID(token); err == nil {
				r = r.WithContext(WithAccountID(r.Context(), accountID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WithAccountID stores the authenticated account on ctx and tags its logger.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	ctx = context.WithValue(ctx, accountKey{}, accountID)
	return logging.With(ctx, slog.String("account_id", accountID))
}

// AccountID returns the authenticated account, or "" for anonymous requests.
func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountKey{}).(string)
	return id
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeError renders the API error envelope for failures raised before a handler runs.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status,
		"message":    message,
		"success":    false,
		"errors":     []string{},
	})
}
