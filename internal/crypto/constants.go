package crypto

// Cipher parameters are fixed: records persisted under one parameter set must
// stay decryptable, and no negotiation or rotation protocol exists.
const (
	// AESKeySize is the one-time symmetric key length (AES-256).
	AESKeySize = 32

	// IVSize is the CBC initialization vector length.
	IVSize = 16

	// RSAKeyBits is the modulus size of principal keypairs.
	RSAKeyBits = 2048

	// IntegrityKeySize is the expected length of the server-wide HMAC secret.
	IntegrityKeySize = 32
)
