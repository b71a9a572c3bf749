package accesstoken

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/alexjbarnes/rtc-token/internal/bytebuf"
	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
)

// Version prefixes every token string.
const Version = "007"

// CredentialLength is the required length of app ids and certificates.
const CredentialLength = 32

// AccessToken is the in-memory form of a token. It is built, encoded once
// and discarded; nothing in this package retains it.
type AccessToken struct {
	AppID    string
	AppCert  string
	IssueTs  uint32
	Expire   uint32
	Salt     int32
	Services map[uint16]Packable

	// OnCompressionFallback is called when compression fails and Build
	// emits the signed bytes uncompressed. Such a token is still "007"
	// tagged but only decoders that tolerate raw payloads can read it.
	OnCompressionFallback func(err error)
}

// New returns a token with no services. expire is the token validity in
// seconds after issueTs.
func New(appID, appCert string, issueTs, expire uint32, salt int32) *AccessToken {
	return &AccessToken{
		AppID:    appID,
		AppCert:  appCert,
		IssueTs:  issueTs,
		Expire:   expire,
		Salt:     salt,
		Services: make(map[uint16]Packable),
	}
}

// AddService adds s, replacing any service of the same type.
func (t *AccessToken) AddService(s Packable) {
	if t.Services == nil {
		t.Services = make(map[uint16]Packable)
	}
	t.Services[s.ServiceType()] = s
}

// ValidCredential reports whether s is exactly 32 hex characters.
func ValidCredential(s string) bool {
	if len(s) != CredentialLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Body packs the signed portion of the token: header fields followed by
// every service in ascending type order.
func (t *AccessToken) Body() ([]byte, error) {
	if len(t.Services) > math.MaxUint16 {
		return nil, fmt.Errorf("packing %d services: %w", len(t.Services), apperrors.ErrEncodingOverflow)
	}

	w := bytebuf.NewWriter().
		PutString(t.AppID).
		PutUint32(t.IssueTs).
		PutUint32(t.Expire).
		PutInt32(t.Salt).
		PutUint16(uint16(len(t.Services)))

	for _, serviceType := range slices.Sorted(maps.Keys(t.Services)) {
		t.Services[serviceType].Pack(w)
	}

	return w.Bytes()
}

// Build validates the credentials, signs the body and returns the encoded
// token string. An invalid app id or certificate fails with
// ErrInvalidCredentials and no token.
func (t *AccessToken) Build() (string, error) {
	if !ValidCredential(t.AppID) || !ValidCredential(t.AppCert) {
		return "", apperrors.ErrInvalidCredentials
	}

	body, err := t.Body()
	if err != nil {
		return "", fmt.Errorf("packing token body: %w", err)
	}

	signature := Sign(SigningKey(t.AppCert, t.IssueTs, t.Salt), body)

	// The signature is written as a length-prefixed byte string, then the
	// body follows unprefixed.
	payload, err := bytebuf.NewWriter().PutBytes(signature).Append(body).Bytes()
	if err != nil {
		return "", fmt.Errorf("framing token: %w", err)
	}

	data, err := compress(payload)
	if err != nil {
		if t.OnCompressionFallback != nil {
			t.OnCompressionFallback(err)
		}
		data = payload
	}

	return Version + base64.StdEncoding.EncodeToString(data), nil
}
