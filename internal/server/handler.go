package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/alexjbarnes/rtc-token/internal/auth"
	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
	"github.com/alexjbarnes/rtc-token/internal/ledger"
	"github.com/alexjbarnes/rtc-token/internal/rtctoken"
)

//go:generate mockgen -source=handler.go -destination=mock_issuance_log_test.go -package=server

// IssuanceLog stores a record of every issued token.
type IssuanceLog interface {
	Record(rec ledger.Issuance) error
	List(channel string, limit int) ([]ledger.Issuance, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type tokenResponse struct {
	Token       string `json:"token"`
	ChannelName string `json:"channelName"`
	UID         uint32 `json:"uid"`
	Account     string `json:"account,omitempty"`
	AppID       string `json:"appId"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// handleToken returns the /api/agora/token handler.
func handleToken(cfg MuxConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()

		channel := q.Get("channelName")
		if channel == "" {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", apperrors.ErrMissingChannel.Error())
			return
		}

		var uid uint32
		if s := q.Get("uid"); s != "" {
			v, err := parseUID(s)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			uid = v
		}

		account := q.Get("account")
		if account != "" && uid != 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "uid and account are mutually exclusive")
			return
		}
		if account == "" {
			account = rtctoken.UIDString(uid)
		}

		cfg.Logger.Info("token request",
			slog.String("channel", channel),
			slog.String("account", account),
			slog.String("client_id", auth.RequestClientID(r.Context())),
		)

		if cfg.AppID == "" || cfg.AppCertificate == "" {
			cfg.Logger.Error("token request rejected", slog.String("error", apperrors.ErrNotConfigured.Error()))
			writeJSONError(w, http.StatusInternalServerError, "Agora Configuration Missing", apperrors.ErrNotConfigured.Error())
			return
		}

		now := cfg.Now()
		expire := rtctoken.ExpireSeconds(cfg.TokenTTL)

		token, err := cfg.Builder.At(now).BuildTokenWithAccount(cfg.AppID, cfg.AppCertificate, channel, account, cfg.Role, expire, expire)
		if err != nil {
			status, code := http.StatusInternalServerError, "token generation failed"
			if errors.Is(err, apperrors.ErrEncodingOverflow) {
				status, code = http.StatusBadRequest, "invalid_request"
			}
			cfg.Logger.Error("token build failed",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
			writeJSONError(w, status, code, err.Error())

			return
		}

		expiresAt := now.Add(time.Duration(expire) * time.Second)

		if cfg.Issuances != nil {
			rec := ledger.Issuance{
				Channel:   channel,
				Account:   account,
				Role:      cfg.Role.String(),
				ClientID:  auth.RequestClientID(r.Context()),
				RemoteIP:  auth.RequestRemoteIP(r.Context()),
				IssuedAt:  now,
				ExpiresAt: expiresAt,
			}
			if err := cfg.Issuances.Record(rec); err != nil {
				cfg.Logger.Warn("failed to record issuance", slog.String("error", err.Error()))
			}
		}

		resp := tokenResponse{
			Token:       token,
			ChannelName: channel,
			UID:         uid,
			AppID:       cfg.AppID,
			ExpiresAt:   expiresAt.Unix(),
		}
		if q.Get("account") != "" {
			resp.Account = account
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// handleIssuances returns the /api/agora/issuances handler.
func handleIssuances(cfg MuxConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if cfg.Issuances == nil {
			writeJSONError(w, http.StatusNotFound, "not_found", "issuance ledger is not enabled")
			return
		}

		limit := defaultListLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeJSONError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
				return
			}
			limit = min(n, maxListLimit)
		}

		recs, err := cfg.Issuances.List(r.URL.Query().Get("channelName"), limit)
		if err != nil {
			cfg.Logger.Error("listing issuances failed", slog.String("error", err.Error()))
			writeJSONError(w, http.StatusInternalServerError, "server_error", "listing issuances failed")
			return
		}

		if recs == nil {
			recs = []ledger.Issuance{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"issuances": recs})
	}
}

// parseUID accepts any unsigned 32-bit value and also signed 32-bit
// values, which map onto the same range by two's complement: -1 is
// 4294967295.
func parseUID(s string) (uint32, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < math.MinInt32 || v > math.MaxUint32 {
		return 0, apperrors.ErrInvalidUID
	}
	return uint32(v), nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, description string) {
	writeJSON(w, status, map[string]string{
		"error":             errCode,
		"error_description": description,
	})
}
