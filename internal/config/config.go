package config

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/alexjbarnes/rtc-token/internal/accesstoken"
	"github.com/alexjbarnes/rtc-token/internal/auth"
	"github.com/alexjbarnes/rtc-token/internal/rtctoken"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for rtc-token.
type Config struct {
	// Application credentials. Both may be left unset: the server still
	// starts and answers token requests with a configuration error.
	AppID          string `env:"AGORA_APP_ID"`
	AppCertificate string `env:"AGORA_APP_CERTIFICATE"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// TokenTTL is both the token lifetime and the publish privilege window
	// for tokens issued over HTTP.
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	TokenRole string        `env:"TOKEN_ROLE" envDefault:"publisher"`

	// Comma-separated list of origins, or "*".
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Optional "client:bcrypt_hash" pairs. When set, /api/ requires
	// HTTP Basic authentication.
	Clients string `env:"TOKEN_CLIENTS"`

	// Optional bbolt issuance ledger. Empty disables it.
	LedgerPath      string        `env:"LEDGER_PATH"`
	LedgerRetention time.Duration `env:"LEDGER_RETENTION" envDefault:"168h"`
}

// maxTTL is the largest window expressible in a 32-bit seconds offset.
const maxTTL = time.Duration(1<<32-1) * time.Second

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. The file usually carries the app
// certificate.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.AppID = strings.TrimSpace(cfg.AppID)
	cfg.AppCertificate = strings.TrimSpace(cfg.AppCertificate)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AppID != "" && !accesstoken.ValidCredential(c.AppID) {
		return fmt.Errorf("AGORA_APP_ID must be %d hex characters", accesstoken.CredentialLength)
	}

	if c.AppCertificate != "" && !accesstoken.ValidCredential(c.AppCertificate) {
		return fmt.Errorf("AGORA_APP_CERTIFICATE must be %d hex characters", accesstoken.CredentialLength)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}

	if c.TokenTTL > maxTTL {
		return fmt.Errorf("TOKEN_TTL must not exceed %s", maxTTL)
	}

	if _, err := rtctoken.ParseRole(c.TokenRole); err != nil {
		return fmt.Errorf("TOKEN_ROLE: %w", err)
	}

	if c.LedgerPath != "" && c.LedgerRetention <= 0 {
		return fmt.Errorf("LEDGER_RETENTION must be positive when LEDGER_PATH is set")
	}

	if _, err := c.ParseClients(); err != nil {
		return fmt.Errorf("TOKEN_CLIENTS: %w", err)
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CredentialsConfigured reports whether both app credentials are set.
func (c *Config) CredentialsConfigured() bool {
	return c.AppID != "" && c.AppCertificate != ""
}

// Role returns the parsed TOKEN_ROLE. Load has already validated it.
func (c *Config) Role() rtctoken.Role {
	role, err := rtctoken.ParseRole(c.TokenRole)
	if err != nil {
		return rtctoken.RolePublisher
	}
	return role
}

// Origins returns the trimmed, non-empty entries of CORS_ALLOWED_ORIGINS.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// ParseClients parses the TOKEN_CLIENTS string into a ClientCredentials map.
// Format: "client1:hash1,client2:hash2" where each hash is a bcrypt hash
// produced by the hash-password subcommand.
func (c *Config) ParseClients() (auth.ClientCredentials, error) {
	clients := make(auth.ClientCredentials)
	if c.Clients == "" {
		return clients, nil
	}

	for _, pair := range strings.Split(c.Clients, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		// bcrypt hashes use '$' separators, so the first ':' splits the pair.
		idx := strings.Index(pair, ":")
		if idx < 0 {
			return nil, fmt.Errorf("invalid client entry (missing ':')")
		}

		clientID := pair[:idx]

		hash := pair[idx+1:]
		if clientID == "" || hash == "" {
			return nil, fmt.Errorf("empty client or hash in entry %d", len(clients)+1)
		}

		if !strings.HasPrefix(hash, "$2") {
			return nil, fmt.Errorf("client %q: secret must be a bcrypt hash", clientID)
		}

		if _, dup := clients[clientID]; dup {
			return nil, fmt.Errorf("duplicate client %q", clientID)
		}

		clients[clientID] = hash
	}

	return clients, nil
}
