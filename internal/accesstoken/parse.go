package accesstoken

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/alexjbarnes/rtc-token/internal/bytebuf"
	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
)

// Parsed is a decoded token. The signature is returned as-is and is not
// checked; Token.AppCert is always empty.
type Parsed struct {
	Version    string
	Signature  []byte
	Compressed bool
	Token      *AccessToken
}

func errUnknownService(serviceType uint16) error {
	return fmt.Errorf("service type %d: %w", serviceType, apperrors.ErrUnknownService)
}

// Parse decodes a token string produced by Build. Payloads that do not
// inflate are read as raw bytes, which covers tokens emitted by the
// compression fallback.
func Parse(token string) (*Parsed, error) {
	if !strings.HasPrefix(token, Version) {
		return nil, fmt.Errorf("%w: missing %q version prefix", apperrors.ErrMalformedToken, Version)
	}

	raw, err := base64.StdEncoding.DecodeString(token[len(Version):])
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %w", apperrors.ErrMalformedToken, err)
	}

	p := &Parsed{Version: Version, Compressed: true}

	payload, err := inflate(raw)
	if err != nil {
		p.Compressed = false
		payload = raw
	}

	if err := p.decode(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMalformedToken, err)
	}

	return p, nil
}

func (p *Parsed) decode(payload []byte) error {
	r := bytebuf.NewReader(payload)

	sig, err := r.Bytes()
	if err != nil {
		return fmt.Errorf("reading signature: %w", err)
	}
	if len(sig) != SignatureSize {
		return fmt.Errorf("signature is %d bytes, want %d", len(sig), SignatureSize)
	}
	p.Signature = append([]byte(nil), sig...)

	t := &AccessToken{Services: make(map[uint16]Packable)}

	if t.AppID, err = r.String(); err != nil {
		return fmt.Errorf("reading app id: %w", err)
	}
	if t.IssueTs, err = r.Uint32(); err != nil {
		return fmt.Errorf("reading issue ts: %w", err)
	}
	if t.Expire, err = r.Uint32(); err != nil {
		return fmt.Errorf("reading expire: %w", err)
	}
	if t.Salt, err = r.Int32(); err != nil {
		return fmt.Errorf("reading salt: %w", err)
	}

	count, err := r.Uint16()
	if err != nil {
		return fmt.Errorf("reading service count: %w", err)
	}

	for i := 0; i < int(count); i++ {
		serviceType, err := r.Uint16()
		if err != nil {
			return fmt.Errorf("reading service %d type: %w", i, err)
		}

		svc, err := unpackService(serviceType, r)
		if err != nil {
			return fmt.Errorf("reading service %d: %w", i, err)
		}
		t.Services[serviceType] = svc
	}

	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%d trailing bytes", n)
	}

	p.Token = t

	return nil
}

// Body re-packs the decoded token body, which is the exact byte sequence
// the signature was computed over.
func (p *Parsed) Body() ([]byte, error) {
	return p.Token.Body()
}
