package e2e_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexjbarnes/rtc-token/internal/accesstoken"
	"github.com/alexjbarnes/rtc-token/internal/auth"
	"github.com/alexjbarnes/rtc-token/internal/ledger"
	"github.com/alexjbarnes/rtc-token/internal/rtctoken"
	"github.com/alexjbarnes/rtc-token/internal/server"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

const (
	testClientID = "e2e-test-client"
	testSecret   = "e2e-test-secret-value"
)

var (
	testAppID   = strings.Repeat("0123456789abcdef", 2)
	testAppCert = strings.Repeat("fedcba9876543210", 2)
)

// harness holds the full e2e test stack: a real HTTP server backed by
// client authentication, the token builder and a bbolt issuance ledger.
type harness struct {
	URL    string
	Ledger *ledger.Ledger
	Client *http.Client
}

type harnessOptions struct {
	role    rtctoken.Role
	clients bool
	noCreds bool
}

// newHarness opens a temp ledger, wires up the HTTP stack via
// server.NewMux, and starts an httptest server.
func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := server.MuxConfig{
		AppID:          testAppID,
		AppCertificate: testAppCert,
		TokenTTL:       rtctokenTTL,
		Role:           opts.role,
		Builder:        rtctoken.NewBuilder(logger),
		Issuances:      l,
		AllowedOrigins: []string{"https://app.example.com"},
		Logger:         logger,
	}

	if opts.noCreds {
		cfg.AppID, cfg.AppCertificate = "", ""
	}

	if opts.clients {
		hash, err := bcrypt.GenerateFromPassword([]byte(testSecret), bcrypt.MinCost)
		require.NoError(t, err)
		cfg.Clients = auth.ClientCredentials{testClientID: string(hash)}
	}

	ts := httptest.NewServer(server.NewMux(cfg))
	t.Cleanup(ts.Close)

	return &harness{
		URL:    ts.URL,
		Ledger: l,
		Client: ts.Client(),
	}
}

// get performs a GET against path with the given query, optionally
// presenting Basic credentials, and returns the status and body.
func (h *harness) get(t *testing.T, path string, query url.Values, withAuth bool) (int, string) {
	t.Helper()

	target := h.URL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, target, nil)
	require.NoError(t, err)

	if withAuth {
		req.SetBasicAuth(testClientID, testSecret)
	}

	resp, err := h.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

// fetchToken requests a token and decodes it.
func (h *harness) fetchToken(t *testing.T, query url.Values, withAuth bool) (string, *accesstoken.Parsed) {
	t.Helper()

	status, body := h.get(t, "/api/agora/token", query, withAuth)
	require.Equal(t, http.StatusOK, status, body)

	token := gjson.Get(body, "token").String()
	require.NotEmpty(t, token)

	p, err := accesstoken.Parse(token)
	require.NoError(t, err)

	return body, p
}

// rtcOf returns the RTC service from a decoded token.
func rtcOf(t *testing.T, p *accesstoken.Parsed) *accesstoken.ServiceRtc {
	t.Helper()

	svc, ok := p.Token.Services[accesstoken.ServiceTypeRtc].(*accesstoken.ServiceRtc)
	require.True(t, ok, "token has no RTC service")

	return svc
}

// verifySignature recomputes the signature with the app certificate.
func verifySignature(t *testing.T, p *accesstoken.Parsed) bool {
	t.Helper()

	body, err := p.Body()
	require.NoError(t, err)

	key := accesstoken.SigningKey(testAppCert, p.Token.IssueTs, p.Token.Salt)

	return string(accesstoken.Sign(key, body)) == string(p.Signature)
}
