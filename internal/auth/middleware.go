// Package auth authenticates callers of the token endpoints. Clients are
// configured statically as client_id to bcrypt hash pairs and present
// their secret with HTTP Basic authentication.
package auth

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// ClientCredentials maps client IDs to bcrypt hashes of their secrets.
type ClientCredentials map[string]string

// dummyHash is compared against when the client ID is unknown so that
// unknown and known clients take the same time to reject.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("rtc-token-dummy-secret"), bcrypt.DefaultCost)

// Verify reports whether secret matches the stored hash for clientID.
func (c ClientCredentials) Verify(clientID, secret string) bool {
	hash, ok := c[clientID]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// HashSecret returns a bcrypt hash suitable for TOKEN_CLIENTS.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type contextKey int

const (
	ctxClientID contextKey = iota
	ctxRemoteIP
)

// RequestClientID returns the authenticated client ID from the context, or "".
func RequestClientID(ctx context.Context) string {
	v, _ := ctx.Value(ctxClientID).(string)
	return v
}

// RequestRemoteIP returns the client IP from the context, or "".
func RequestRemoteIP(ctx context.Context) string {
	v, _ := ctx.Value(ctxRemoteIP).(string)
	return v
}

// Middleware returns HTTP middleware that requires Basic credentials
// matching one of clients. With no clients configured every request is
// let through and only the remote IP is recorded in the context.
func Middleware(clients ClientCredentials, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			ctx := context.WithValue(r.Context(), ctxRemoteIP, ip)

			// CORS preflight requests never carry credentials.
			if len(clients) == 0 || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			clientID, secret, ok := r.BasicAuth()
			if !ok {
				logger.Debug("middleware: no basic credentials",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				unauthorized(w)

				return
			}

			if !clients.Verify(clientID, secret) {
				logger.Warn("middleware: invalid client credentials",
					slog.String("client_id", clientID),
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				unauthorized(w)

				return
			}

			logger.Debug("middleware: authenticated client",
				slog.String("client_id", clientID),
				slog.String("ip", ip),
			)

			ctx = context.WithValue(ctx, ctxClientID, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="rtc-token"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}
