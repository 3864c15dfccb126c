package crypto

import "errors"

// Sentinel errors for errors.Is() checks.
var (
	// ErrKeyUnavailable is returned when a principal's keyring is missing or
	// incomplete, so no private key can be recovered for it.
	ErrKeyUnavailable = errors.New("key material unavailable")

	// ErrEncryptionInputInvalid is returned when plaintext, key, or IV resolve
	// empty at encrypt time. Encrypt-time failures are fatal to the write.
	ErrEncryptionInputInvalid = errors.New("missing required encryption input")

	// ErrDecryptionFailed is returned when a symmetric decryption cannot be
	// completed, typically because the supplied key does not match.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrKeyUnwrapFailed is returned when an RSA-OAEP unwrap fails on
	// malformed input or a mismatched private key.
	ErrKeyUnwrapFailed = errors.New("key unwrap failed")
)
