// Package auth implements the session guard protecting read and delete
// operations: a stateless signed token carried in a cookie, issued
// against a single shared password. Ingestion is deliberately outside
// the guard so external systems can log without a session.
package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose tags issued tokens; validation rejects any other purpose.
const TokenPurpose = "log-viewer"

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

// Config holds session guard configuration.
type Config struct {
	// Password is the single shared viewer credential.
	Password string

	// Secret signs session tokens (HS256).
	Secret string

	// CookieName is the client-held credential's cookie name.
	CookieName string

	// TTL is the session lifetime.
	TTL time.Duration

	// Secure marks cookies Secure; set in production.
	Secure bool

	// APIKey, when non-empty, is accepted from the X-API-Key header as an
	// alternative machine-client credential (used by the MCP adapter).
	APIKey string
}

// Guard issues and validates session credentials. Tokens are entirely
// self-describing (signature + embedded expiry); there is no server-side
// session table and no revocation list, so a leaked token remains valid
// until its natural expiry. That is an accepted trade-off, not a bug.
type Guard struct {
	cfg Config
}

// Status is the outcome of validating a credential.
type Status struct {
	Authenticated bool      `json:"authenticated"`
	ExpiresAt     time.Time `json:"-"`
}

type viewerClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// New creates a session guard. CookieName and TTL fall back to defaults
// when unset.
func New(cfg Config) *Guard {
	if cfg.CookieName == "" {
		cfg.CookieName = "poslog_auth"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Guard{cfg: cfg}
}

// TTL returns the configured session lifetime.
func (g *Guard) TTL() time.Duration {
	return g.cfg.TTL
}

// CookieName returns the credential cookie's name.
func (g *Guard) CookieName() string {
	return g.cfg.CookieName
}

// PasswordValid reports whether the supplied password matches the shared
// credential. Plain equality against a single secret; per-user identity
// and rate limiting are out of scope.
func (g *Guard) PasswordValid(password string) bool {
	return password != "" && password == g.cfg.Password
}

// Issue mints a signed token asserting the log-viewer purpose, expiring
// at now + TTL.
func (g *Guard) Issue() (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(g.cfg.TTL)

	claims := viewerClaims{
		Purpose: TokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate verifies the token signature, purpose tag and expiry. Any
// failure yields an unauthenticated status.
func (g *Guard) Validate(token string) Status {
	if token == "" {
		return Status{}
	}

	var claims viewerClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(g.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Status{}
	}
	if claims.Purpose != TokenPurpose || claims.ExpiresAt == nil {
		return Status{}
	}

	return Status{Authenticated: true, ExpiresAt: claims.ExpiresAt.Time}
}

// SetCookie stores the credential on the client: httpOnly, SameSite=Lax,
// Secure in production, max-age matching the token expiry.
func (g *Guard) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   g.cfg.Secure,
	})
}

// ClearCookie removes the credential from the client.
func (g *Guard) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   g.cfg.Secure,
	})
}

// TokenFromRequest extracts the credential cookie, if any.
func (g *Guard) TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(g.cfg.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// StatusFromRequest validates the request's credential.
func (g *Guard) StatusFromRequest(r *http.Request) Status {
	if g.apiKeyValid(r) {
		// API-key clients have no expiring session; report the farthest
		// horizon a token could have.
		return Status{Authenticated: true, ExpiresAt: time.Now().Add(g.cfg.TTL)}
	}
	return g.Validate(g.TokenFromRequest(r))
}

func (g *Guard) apiKeyValid(r *http.Request) bool {
	return g.cfg.APIKey != "" && r.Header.Get("X-API-Key") == g.cfg.APIKey
}

// RequireAuth gates protected endpoints. A valid session cookie or a
// matching X-API-Key passes; anything else clears the cookie and returns
// 401 without running the handler.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.apiKeyValid(r) {
			next.ServeHTTP(w, r)
			return
		}

		status := g.Validate(g.TokenFromRequest(r))
		if !status.Authenticated {
			g.ClearCookie(w)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
