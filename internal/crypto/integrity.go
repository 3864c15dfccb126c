package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Tag computes a hex HMAC-SHA256 over ciphertext bytes with the server-wide
// integrity secret. Deterministic: the same ciphertext and secret always
// produce the same tag.
func Tag(ciphertext string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ciphertext))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the tag and compares in constant time. Any mismatch means
// the record is suspect; the caller decides what to display, the record itself
// is never rejected or mutated here.
func Verify(ciphertext, tag string, secret []byte) bool {
	expected, err := hex.DecodeString(tag)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(ciphertext))
	return hmac.Equal(mac.Sum(nil), expected)
}

// TagReader computes a hex HMAC-SHA256 over a byte stream. Used for
// attachment files, whose tag is stored alongside the storage path and
// verified independently of message content.
func TagReader(r io.Reader, secret []byte) (string, error) {
	mac := hmac.New(sha256.New, secret)
	if _, err := io.Copy(mac, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyReader recomputes a stream's tag and compares in constant time.
func VerifyReader(r io.Reader, tag string, secret []byte) (bool, error) {
	expected, err := hex.DecodeString(tag)
	if err != nil {
		return false, nil
	}
	mac := hmac.New(sha256.New, secret)
	if _, err := io.Copy(mac, r); err != nil {
		return false, err
	}
	return hmac.Equal(mac.Sum(nil), expected), nil
}
