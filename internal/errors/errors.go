package errors

import "errors"

// Client errors.
var (
	ErrInvalidCredentials = errors.New("invalid app id or app certificate")
	ErrEncodingOverflow   = errors.New("value exceeds 16-bit length limit")
	ErrInvalidRole        = errors.New("invalid role")
	ErrMissingChannel     = errors.New("channel name is required")
	ErrInvalidUID         = errors.New("invalid uid")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Decoding errors.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrShortBuffer    = errors.New("unexpected end of buffer")
	ErrUnknownService = errors.New("unknown service type")
)

// Server errors.
var (
	ErrSigningUnavailable = errors.New("signing unavailable")
	ErrCompression        = errors.New("compression failed")
	ErrNotConfigured      = errors.New("app credentials not configured")
)
