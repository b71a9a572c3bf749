package accesstoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/alexjbarnes/rtc-token/internal/bytebuf"
	apperrors "github.com/alexjbarnes/rtc-token/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAppID   = strings.Repeat("a", 32)
	testAppCert = strings.Repeat("b", 32)
)

const (
	testIssueTs uint32 = 1700000000
	testSalt    int32  = 123456789
)

func testToken(channel, account string) *AccessToken {
	tok := New(testAppID, testAppCert, testIssueTs, 86400, testSalt)
	svc := NewServiceRtc(channel, account)
	svc.AddPrivilege(PrivilegeJoinChannel, 86400)
	svc.AddPrivilege(PrivilegePublishAudioStream, 86400)
	svc.AddPrivilege(PrivilegePublishVideoStream, 86400)
	svc.AddPrivilege(PrivilegePublishDataStream, 86400)
	tok.AddService(svc)
	return tok
}

func mustBuild(t *testing.T, tok *AccessToken) string {
	t.Helper()
	s, err := tok.Build()
	require.NoError(t, err)
	return s
}

func hmacRef(key, msg []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(msg)
	return m.Sum(nil)
}

func TestValidCredential(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{strings.Repeat("a", 32), true},
		{"0123456789abcdef0123456789ABCDEF", true},
		{strings.Repeat("a", 31), false},
		{strings.Repeat("a", 33), false},
		{strings.Repeat("g", 32), false},
		{"", false},
		{strings.Repeat("a", 30) + " a", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidCredential(tt.in), "ValidCredential(%q)", tt.in)
	}
}

func TestBody_Layout(t *testing.T) {
	tok := New(testAppID, testAppCert, testIssueTs, 600, testSalt)
	svc := NewServiceRtc("room1", "42")
	svc.AddPrivilege(PrivilegeJoinChannel, 600)
	tok.AddService(svc)

	body, err := tok.Body()
	require.NoError(t, err)

	want, err := bytebuf.NewWriter().
		PutString(testAppID).
		PutUint32(testIssueTs).
		PutUint32(600).
		PutInt32(testSalt).
		PutUint16(1).
		PutUint16(ServiceTypeRtc).
		PutUint16(1).
		PutUint16(1).PutUint32(600).
		PutString("room1").
		PutString("42").
		Bytes()
	require.NoError(t, err)
	assert.Equal(t, want, body)
}

func TestSigningKey_TwoStageDerivation(t *testing.T) {
	ts := binary.LittleEndian.AppendUint32(nil, testIssueTs)
	salt := binary.LittleEndian.AppendUint32(nil, uint32(testSalt))
	want := hmacRef(salt, hmacRef(ts, []byte(testAppCert)))

	assert.Equal(t, want, SigningKey(testAppCert, testIssueTs, testSalt))
	assert.Len(t, want, SignatureSize)
}

func TestSigningKey_NegativeSalt(t *testing.T) {
	salt := int32(-1)
	ts := binary.LittleEndian.AppendUint32(nil, testIssueTs)
	want := hmacRef([]byte{0xff, 0xff, 0xff, 0xff}, hmacRef(ts, []byte(testAppCert)))

	assert.Equal(t, want, SigningKey(testAppCert, testIssueTs, salt))
}

func TestBuild_Format(t *testing.T) {
	s := mustBuild(t, testToken("room1", "42"))

	require.True(t, strings.HasPrefix(s, "007"))
	raw, err := base64.StdEncoding.DecodeString(s[3:])
	require.NoError(t, err)

	payload, err := inflate(raw)
	require.NoError(t, err)

	body, err := testToken("room1", "42").Body()
	require.NoError(t, err)

	// u16 length prefix, 32-byte signature, then the body.
	require.Len(t, payload, 2+SignatureSize+len(body))
	assert.Equal(t, []byte{SignatureSize, 0}, payload[:2])
	assert.Equal(t, body, payload[2+SignatureSize:])

	key := SigningKey(testAppCert, testIssueTs, testSalt)
	assert.Equal(t, hmacRef(key, body), payload[2:2+SignatureSize])
}

func TestBuild_Deterministic(t *testing.T) {
	first := mustBuild(t, testToken("room1", "42"))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, mustBuild(t, testToken("room1", "42")))
	}
}

func TestBuild_InputChangesToken(t *testing.T) {
	base := mustBuild(t, testToken("room1", "42"))

	assert.NotEqual(t, base, mustBuild(t, testToken("room2", "42")), "channel")
	assert.NotEqual(t, base, mustBuild(t, testToken("room1", "43")), "account")

	tok := testToken("room1", "42")
	tok.Services[ServiceTypeRtc].(*ServiceRtc).AddPrivilege(PrivilegePublishDataStream, 86401)
	assert.NotEqual(t, base, mustBuild(t, tok), "privilege expiry")

	tok = testToken("room1", "42")
	tok.AppCert = strings.Repeat("c", 32)
	changed := mustBuild(t, tok)
	assert.NotEqual(t, base, changed, "certificate")

	p1, err := Parse(base)
	require.NoError(t, err)
	p2, err := Parse(changed)
	require.NoError(t, err)
	assert.NotEqual(t, p1.Signature, p2.Signature)
}

func TestBuild_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name    string
		appID   string
		appCert string
	}{
		{"short id", "abc", testAppCert},
		{"short cert", testAppID, "abc"},
		{"non-hex id", strings.Repeat("z", 32), testAppCert},
		{"non-hex cert", testAppID, strings.Repeat("z", 32)},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := testToken("room1", "42")
			tok.AppID = tt.appID
			tok.AppCert = tt.appCert

			s, err := tok.Build()
			assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
			assert.Empty(t, s)
		})
	}
}

func TestBuild_ChannelOverflow(t *testing.T) {
	s, err := testToken(strings.Repeat("x", 65536), "").Build()
	assert.ErrorIs(t, err, apperrors.ErrEncodingOverflow)
	assert.Empty(t, s)
}

func TestBuild_CompressionFallback(t *testing.T) {
	orig := compress
	t.Cleanup(func() { compress = orig })
	compress = func([]byte) ([]byte, error) {
		return nil, apperrors.ErrCompression
	}

	var reported error
	tok := testToken("room1", "42")
	tok.OnCompressionFallback = func(err error) { reported = err }

	s, err := tok.Build()
	require.NoError(t, err)
	require.ErrorIs(t, reported, apperrors.ErrCompression)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, Version))
	require.NoError(t, err)
	body, err := testToken("room1", "42").Body()
	require.NoError(t, err)
	assert.Equal(t, body, raw[2+SignatureSize:])

	p, err := Parse(s)
	require.NoError(t, err)
	assert.False(t, p.Compressed)
	assert.Equal(t, "room1", p.Token.Services[ServiceTypeRtc].(*ServiceRtc).ChannelName)
}

func TestParse_WorkedExample(t *testing.T) {
	p, err := Parse(mustBuild(t, testToken("room1", "42")))
	require.NoError(t, err)

	assert.Equal(t, "007", p.Version)
	assert.True(t, p.Compressed)
	assert.Len(t, p.Signature, SignatureSize)
	assert.Equal(t, testAppID, p.Token.AppID)
	assert.Empty(t, p.Token.AppCert)
	assert.Equal(t, testIssueTs, p.Token.IssueTs)
	assert.Equal(t, uint32(86400), p.Token.Expire)
	assert.Equal(t, testSalt, p.Token.Salt)

	require.Len(t, p.Token.Services, 1)
	rtc, ok := p.Token.Services[ServiceTypeRtc].(*ServiceRtc)
	require.True(t, ok)
	assert.Equal(t, ServiceTypeRtc, rtc.Type)
	assert.Equal(t, map[uint16]uint32{1: 86400, 2: 86400, 3: 86400, 4: 86400}, rtc.Privileges)
	assert.Equal(t, "room1", rtc.ChannelName)
	assert.Equal(t, "42", rtc.Account)

	body, err := p.Body()
	require.NoError(t, err)
	key := SigningKey(testAppCert, testIssueTs, testSalt)
	assert.Equal(t, Sign(key, body), p.Signature)
}

func TestParse_Errors(t *testing.T) {
	valid := mustBuild(t, testToken("room1", "42"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"wrong version", "006" + valid[3:]},
		{"bad base64", "007!!!"},
		{"truncated payload", "007" + base64.StdEncoding.EncodeToString([]byte{32, 0, 1, 2})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.token)
			assert.ErrorIs(t, err, apperrors.ErrMalformedToken)
		})
	}
}

func TestParse_UnknownService(t *testing.T) {
	tok := New(testAppID, testAppCert, testIssueTs, 60, testSalt)
	svc := NewService(9)
	svc.AddPrivilege(PrivilegeJoinChannel, 60)
	tok.AddService(svc)

	_, err := Parse(mustBuild(t, tok))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownService))
	assert.True(t, errors.Is(err, apperrors.ErrMalformedToken))
}

func TestAddService_ReplacesSameType(t *testing.T) {
	tok := New(testAppID, testAppCert, testIssueTs, 60, testSalt)
	tok.AddService(NewServiceRtc("a", ""))
	tok.AddService(NewServiceRtc("b", ""))

	require.Len(t, tok.Services, 1)
	assert.Equal(t, "b", tok.Services[ServiceTypeRtc].(*ServiceRtc).ChannelName)
}

func TestPrivilege_String(t *testing.T) {
	assert.Equal(t, "join_channel", PrivilegeJoinChannel.String())
	assert.Equal(t, "publish_data_stream", PrivilegePublishDataStream.String())
	assert.Equal(t, "unknown", Privilege(99).String())
}
