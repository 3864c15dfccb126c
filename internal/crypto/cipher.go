package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

// RecipientKind distinguishes who a message is wrapped for.
type RecipientKind int

const (
	// RecipientUser wraps for a single user's keypair (direct messages).
	RecipientUser RecipientKind = iota
	// RecipientChannel wraps for a channel's shared keypair: every member who
	// can obtain the channel private key can read all channel messages.
	RecipientChannel
)

// Recipient is the principal a message is encrypted for. The wrapping step is
// uniform regardless of kind; the kind exists so callers resolve the right
// private key at read time.
type Recipient struct {
	Kind      RecipientKind
	PublicKey string // SPKI PEM
}

// Sealed is the output of a hybrid encryption: all fields base64 except where
// noted, and either all present or the encryption failed as a whole.
type Sealed struct {
	Ciphertext string // AES-256-CBC ciphertext
	WrappedKey string // one-time AES key under the recipient's RSA-OAEP
	IV         string
}

// Encrypt encrypts plaintext for exactly one recipient: a fresh 256-bit AES
// key and 16-byte IV encrypt the payload (CBC, PKCS7 padding), then the AES
// key is wrapped with the recipient's public key.
func Encrypt(plaintext string, recipient Recipient) (Sealed, error) {
	if plaintext == "" || recipient.PublicKey == "" {
		return Sealed{}, ErrEncryptionInputInvalid
	}

	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return Sealed{}, fmt.Errorf("generating message key: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return Sealed{}, fmt.Errorf("generating iv: %w", err)
	}

	ciphertext, err := encryptCBC([]byte(plaintext), key, iv)
	if err != nil {
		return Sealed{}, err
	}

	wrapped, err := WrapKey(key, recipient.PublicKey)
	if err != nil {
		return Sealed{}, err
	}

	return Sealed{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		WrappedKey: wrapped,
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt reverses Encrypt given the unwrapped AES key and the base64 IV.
// It reports ok=false instead of an error on any cipher-level failure (bad
// padding, wrong key, malformed base64) so callers can apply fallback policy
// without aborting a batch.
func Decrypt(ciphertext string, key []byte, iv string) (string, bool) {
	if ciphertext == "" || len(key) != AESKeySize || iv == "" {
		return "", false
	}

	rawIV, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(rawIV) != IVSize {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", false
	}

	plaintext, err := decryptCBC(raw, key, rawIV)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

// WrapKey encrypts a one-time AES key with the recipient's RSA public key
// (OAEP, SHA-1 per the persisted record format) and returns it base64-encoded.
func WrapKey(key []byte, publicKeyPEM string) (string, error) {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return "", err
	}
	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return "", fmt.Errorf("wrapping message key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// UnwrapKey recovers the one-time AES key from its wrapped form using the
// recipient's private key.
func UnwrapKey(wrappedKey string, priv *rsa.PrivateKey) ([]byte, error) {
	if wrappedKey == "" || priv == nil {
		return nil, ErrKeyUnwrapFailed
	}
	raw, err := base64.StdEncoding.DecodeString(wrappedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed wrapped key", ErrKeyUnwrapFailed)
	}
	key, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, raw, nil)
	if err != nil {
		return nil, ErrKeyUnwrapFailed
	}
	return key, nil
}

// ParsePublicKey decodes an SPKI PEM RSA public key.
func ParsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in public key", ErrKeyUnavailable)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not RSA", ErrKeyUnavailable)
	}
	return pub, nil
}

// ParsePrivateKey decodes a PKCS8 PEM RSA private key.
func ParsePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in private key", ErrKeyUnavailable)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not RSA", ErrKeyUnavailable)
	}
	return priv, nil
}

func encryptCBC(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func decryptCBC(ciphertext, key, iv []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecryptionFailed
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecryptionFailed
		}
	}
	return data[:len(data)-n], nil
}
