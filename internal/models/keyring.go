package models

// Keyring holds the asymmetric key material a principal (user or channel) owns.
// PublicKey is SPKI PEM; the PKCS8 PEM private key is stored encrypted under
// WrapKey with AES-256-CBC. A principal either has all four fields set or none:
// partial state means "keys not yet provisioned".
type Keyring struct {
	PublicKey           string `json:"publicKey" gorm:"type:text"`
	EncryptedPrivateKey string `json:"-" gorm:"type:text"`
	KeyIV               string `json:"-"`
	WrapKey             string `json:"-"`
}

// Provisioned reports whether the keyring carries a complete set of key material.
func (k Keyring) Provisioned() bool {
	return k.PublicKey != "" && k.EncryptedPrivateKey != "" && k.KeyIV != "" && k.WrapKey != ""
}

// Empty reports whether no key material has been written at all.
func (k Keyring) Empty() bool {
	return k.PublicKey == "" && k.EncryptedPrivateKey == "" && k.KeyIV == "" && k.WrapKey == ""
}
