package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/adwaith-rk/threadly/internal/models"
)

// Provision generates and stores a principal's key material exactly once: a
// 2048-bit RSA keypair (SPKI/PKCS8 PEM) and a 256-bit wrap key under which the
// private key is encrypted (AES-256-CBC, random IV). Calling it on an
// already-provisioned keyring is a no-op; regenerating keys would orphan every
// message previously wrapped for this principal. It reports whether new key
// material was written.
func Provision(kr *models.Keyring) (bool, error) {
	if kr.Provisioned() {
		return false, nil
	}

	publicPEM, privatePEM, err := generateKeypair()
	if err != nil {
		return false, err
	}

	wrapKey := make([]byte, AESKeySize)
	if _, err := rand.Read(wrapKey); err != nil {
		return false, fmt.Errorf("generating wrap key: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return false, fmt.Errorf("generating iv: %w", err)
	}

	encrypted, err := encryptCBC([]byte(privatePEM), wrapKey, iv)
	if err != nil {
		return false, err
	}

	kr.PublicKey = publicPEM
	kr.EncryptedPrivateKey = base64.StdEncoding.EncodeToString(encrypted)
	kr.KeyIV = base64.StdEncoding.EncodeToString(iv)
	kr.WrapKey = base64.StdEncoding.EncodeToString(wrapKey)
	return true, nil
}

// UnwrapPrivateKey decrypts a keyring's private key with the supplied wrap
// key. It fails with ErrKeyUnavailable when any stored field is missing and
// ErrDecryptionFailed when the wrap key does not match.
func UnwrapPrivateKey(kr models.Keyring, wrapKey []byte) (*rsa.PrivateKey, error) {
	if kr.PublicKey == "" || kr.EncryptedPrivateKey == "" || kr.KeyIV == "" {
		return nil, ErrKeyUnavailable
	}

	iv, err := base64.StdEncoding.DecodeString(kr.KeyIV)
	if err != nil || len(iv) != IVSize {
		return nil, fmt.Errorf("%w: malformed key iv", ErrKeyUnavailable)
	}
	encrypted, err := base64.StdEncoding.DecodeString(kr.EncryptedPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed encrypted private key", ErrKeyUnavailable)
	}
	if len(wrapKey) != AESKeySize {
		return nil, ErrDecryptionFailed
	}

	privatePEM, err := decryptCBC(encrypted, wrapKey, iv)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	priv, err := ParsePrivateKey(string(privatePEM))
	if err != nil {
		// Wrong wrap key can decrypt to garbage that still unpads cleanly.
		return nil, ErrDecryptionFailed
	}
	return priv, nil
}

// UnwrapStoredPrivateKey unwraps using the wrap key persisted on the keyring
// itself. The source design stores that key in the clear next to the
// ciphertext, so this is the server-side read path for channel keyrings.
func UnwrapStoredPrivateKey(kr models.Keyring) (*rsa.PrivateKey, error) {
	if kr.WrapKey == "" {
		return nil, ErrKeyUnavailable
	}
	wrapKey, err := base64.StdEncoding.DecodeString(kr.WrapKey)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed wrap key", ErrKeyUnavailable)
	}
	return UnwrapPrivateKey(kr, wrapKey)
}

func generateKeypair() (publicPEM, privatePEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return "", "", fmt.Errorf("generating keypair: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("encoding private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("encoding public key: %w", err)
	}

	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return publicPEM, privatePEM, nil
}
