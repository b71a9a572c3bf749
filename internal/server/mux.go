// Package server provides HTTP server construction for rtc-token.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexjbarnes/rtc-token/internal/auth"
	"github.com/alexjbarnes/rtc-token/internal/rtctoken"
)

// MuxConfig holds dependencies for building the HTTP mux.
type MuxConfig struct {
	AppID          string
	AppCertificate string
	TokenTTL       time.Duration
	Role           rtctoken.Role
	Builder        *rtctoken.Builder
	Issuances      IssuanceLog
	Clients        auth.ClientCredentials
	AllowedOrigins []string
	Logger         *slog.Logger
	// Now is the issue time of every token and the base of expiresAt.
	Now func() time.Time
}

// NewMux builds the HTTP handler with the health, token and issuance
// endpoints. The /api/ endpoints sit behind client authentication when
// clients are configured; CORS applies to everything.
func NewMux(cfg MuxConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Builder == nil {
		cfg.Builder = rtctoken.NewBuilder(cfg.Logger)
	}
	// Tokens are pinned to Now per request, so the builder's clock is
	// only a fallback.
	if cfg.Now == nil {
		cfg.Now = cfg.Builder.Now
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	api := auth.Middleware(cfg.Clients, cfg.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/api/agora/token", api(handleToken(cfg)))
	mux.Handle("/api/agora/issuances", api(handleIssuances(cfg)))

	return withCORS(cfg.AllowedOrigins, withRequestLog(cfg.Logger, mux))
}
