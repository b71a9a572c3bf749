// Package rtctoken builds channel access tokens for a role. It applies the
// role policy to a single RTC service and hands the result to
// accesstoken for signing and encoding.
package rtctoken

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alexjbarnes/rtc-token/internal/accesstoken"
	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
)

// Builder produces tokens. The zero value is usable and reads the wall
// clock and crypto/rand; tests inject Now and Salt. A Builder holds no
// per-token state and is safe for concurrent use.
type Builder struct {
	Now    func() time.Time
	Salt   func() (int32, error)
	Logger *slog.Logger
}

// NewBuilder returns a Builder using the wall clock, crypto/rand salts
// and the given logger.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{
		Now:    time.Now,
		Salt:   RandomSalt,
		Logger: logger,
	}
}

// RandomSalt draws a signed 32-bit salt from crypto/rand.
func RandomSalt() (int32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Builder) salt() (int32, error) {
	if b.Salt != nil {
		return b.Salt()
	}
	return RandomSalt()
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// BuildTokenWithUID builds a token for a numeric user id. uid 0 produces
// a token any user id can join with.
func (b *Builder) BuildTokenWithUID(appID, appCert, channelName string, uid uint32, role Role, tokenExpire, privilegeExpire uint32) (string, error) {
	return b.BuildTokenWithAccount(appID, appCert, channelName, UIDString(uid), role, tokenExpire, privilegeExpire)
}

// BuildTokenWithAccount builds a token for a string user account.
// tokenExpire and privilegeExpire are seconds after issuance.
func (b *Builder) BuildTokenWithAccount(appID, appCert, channelName, account string, role Role, tokenExpire, privilegeExpire uint32) (string, error) {
	if !accesstoken.ValidCredential(appID) || !accesstoken.ValidCredential(appCert) {
		return "", apperrors.ErrInvalidCredentials
	}

	salt, err := b.salt()
	if err != nil {
		return "", fmt.Errorf("%w: generating salt: %w", apperrors.ErrSigningUnavailable, err)
	}

	issueTs := unixSeconds(b.now())

	tok := accesstoken.New(appID, appCert, issueTs, tokenExpire, salt)
	tok.OnCompressionFallback = func(err error) {
		b.logger().Warn("token compression failed, emitting uncompressed payload",
			slog.String("channel", channelName),
			slog.String("error", err.Error()),
		)
	}

	svc := accesstoken.NewServiceRtc(channelName, account)
	Grant(svc, role, tokenExpire, privilegeExpire)
	tok.AddService(svc)

	token, err := tok.Build()
	if err != nil {
		return "", fmt.Errorf("building token: %w", err)
	}

	return token, nil
}

// BuildTokenWithDeadline builds a token whose join and publish privileges
// both end at deadline. A deadline already in the past yields a token with
// zero-second offsets.
func (b *Builder) BuildTokenWithDeadline(appID, appCert, channelName string, uid uint32, role Role, deadline time.Time) (string, error) {
	return b.BuildTokenWithAccountDeadline(appID, appCert, channelName, UIDString(uid), role, deadline)
}

// BuildTokenWithAccountDeadline is BuildTokenWithDeadline for a string
// account. The offset and the issue timestamp come from one clock reading.
func (b *Builder) BuildTokenWithAccountDeadline(appID, appCert, channelName, account string, role Role, deadline time.Time) (string, error) {
	now := b.now()
	expire := RelativeExpire(deadline, now)
	return b.At(now).BuildTokenWithAccount(appID, appCert, channelName, account, role, expire, expire)
}

// At returns a copy of b whose clock is fixed at now.
func (b *Builder) At(now time.Time) *Builder {
	c := *b
	c.Now = func() time.Time { return now }
	return &c
}

// RelativeExpire converts an absolute deadline to whole seconds after now,
// clamped to [0, MaxUint32].
func RelativeExpire(deadline, now time.Time) uint32 {
	secs := deadline.Unix() - now.Unix()
	switch {
	case secs <= 0:
		return 0
	case secs > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(secs)
	}
}

// ExpireSeconds converts a duration to whole seconds for token offsets,
// clamped to [0, MaxUint32].
func ExpireSeconds(d time.Duration) uint32 {
	secs := int64(d / time.Second)
	switch {
	case secs <= 0:
		return 0
	case secs > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(secs)
	}
}

func unixSeconds(t time.Time) uint32 {
	return uint32(t.Unix())
}
