// Package accesstoken builds version "007" access tokens: signed,
// compressed, base64 strings that grant time-limited privileges on a
// set of services.
//
// # Wire format
//
//	token     = "007" + base64(zlib(signature ++ body))
//	signature = HMAC-SHA256(signing_key, body)            (32 bytes)
//	body      = string(app_id) ++ u32(issue_ts) ++ u32(expire) ++ i32(salt)
//	            ++ u16(service_count) ++ services...
//	service   = u16(type) ++ u16(privilege_count)
//	            ++ (u16(privilege) ++ u32(expire_offset))...
//	            ++ service-specific fields
//	string(s) = u16(len(s)) ++ bytes(s)
//
// All integers are little-endian. Services and privileges are written in
// ascending type order. The signing key is derived from the application
// certificate in two HMAC-SHA256 steps keyed by the issue timestamp and
// then the salt.
//
// The certificate is an input to key derivation only and never appears in
// the token. Verification is out of scope; Parse decodes the fields
// without checking the signature.
package accesstoken
