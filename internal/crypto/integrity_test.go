package crypto

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func testSecret() []byte {
	return bytes.Repeat([]byte{0x42}, IntegrityKeySize)
}

func TestTagDeterministic(t *testing.T) {
	secret := testSecret()
	a := Tag("ciphertext bytes", secret)
	b := Tag("ciphertext bytes", secret)
	if a != b {
		t.Errorf("Tag() not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Tag() length = %d, want 64 hex chars", len(a))
	}
}

func TestVerify(t *testing.T) {
	secret := testSecret()
	ciphertext := base64.StdEncoding.EncodeToString([]byte("some encrypted payload"))
	tag := Tag(ciphertext, secret)

	if !Verify(ciphertext, tag, secret) {
		t.Fatal("Verify() failed on untampered ciphertext")
	}

	tests := []struct {
		name       string
		ciphertext string
		tag        string
		secret     []byte
	}{
		{"tampered ciphertext", ciphertext + "x", tag, secret},
		{"wrong secret", ciphertext, tag, bytes.Repeat([]byte{0x43}, IntegrityKeySize)},
		{"non-hex tag", ciphertext, "zz" + tag[2:], secret},
		{"truncated tag", ciphertext, tag[:32], secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Verify(tt.ciphertext, tt.tag, tt.secret) {
				t.Error("Verify() = true, want false")
			}
		})
	}
}

// Flipping any single byte of the ciphertext must fail verification.
func TestVerifyDetectsEveryByteFlip(t *testing.T) {
	secret := testSecret()
	raw := []byte("0123456789abcdef0123456789abcdef")
	tag := Tag(string(raw), secret)

	for i := range raw {
		flipped := append([]byte(nil), raw...)
		flipped[i] ^= 0x01
		if Verify(string(flipped), tag, secret) {
			t.Errorf("Verify() passed with byte %d flipped", i)
		}
	}
}

func TestTagReader(t *testing.T) {
	secret := testSecret()
	payload := strings.Repeat("attachment bytes ", 1024)

	tag, err := TagReader(strings.NewReader(payload), secret)
	if err != nil {
		t.Fatalf("TagReader() error = %v", err)
	}
	if tag != Tag(payload, secret) {
		t.Error("TagReader() disagrees with Tag() over the same bytes")
	}

	ok, err := VerifyReader(strings.NewReader(payload), tag, secret)
	if err != nil || !ok {
		t.Errorf("VerifyReader() = %v, %v; want true, nil", ok, err)
	}

	ok, err = VerifyReader(strings.NewReader(payload+"x"), tag, secret)
	if err != nil || ok {
		t.Errorf("VerifyReader() on tampered stream = %v, %v; want false, nil", ok, err)
	}
}
