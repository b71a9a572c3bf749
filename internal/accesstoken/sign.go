package accesstoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// SignatureSize is the length of the HMAC-SHA256 signature that prefixes
// the token body.
const SignatureSize = sha256.Size

// SigningKey derives the per-token key from the application certificate:
//
//	stage1 = HMAC-SHA256(key = u32le(issueTs), msg = appCert)
//	key    = HMAC-SHA256(key = i32le(salt),    msg = stage1)
func SigningKey(appCert string, issueTs uint32, salt int32) []byte {
	stage1 := hmacSHA256(binary.LittleEndian.AppendUint32(nil, issueTs), []byte(appCert))
	return hmacSHA256(binary.LittleEndian.AppendUint32(nil, uint32(salt)), stage1)
}

// Sign returns HMAC-SHA256(key, body).
func Sign(key, body []byte) []byte {
	return hmacSHA256(key, body)
}

func hmacSHA256(key, msg []byte) []byte {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write(msg)
	return m.Sum(nil)
}
