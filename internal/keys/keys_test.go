package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

const testSalt = "00112233445566778899aabbccddeeff"

func TestGenerateSalt(t *testing.T) {
	s1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	if len(s1) != SaltLength {
		t.Errorf("len(salt) = %d, want %d", len(s1), SaltLength)
	}
	if _, err := hex.DecodeString(s1); err != nil {
		t.Errorf("salt is not hex: %v", err)
	}

	s2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	if s1 == s2 {
		t.Error("two salts are identical")
	}
}

func TestHashPassword(t *testing.T) {
	sum := sha256.Sum256([]byte(testSalt + "Secret123!"))
	want := hex.EncodeToString(sum[:])

	if got := HashPassword("Secret123!", testSalt); got != want {
		t.Errorf("HashPassword() = %q, want %q", got, want)
	}
	if HashPassword("Secret123!", testSalt) != HashPassword("Secret123!", testSalt) {
		t.Error("HashPassword() is not deterministic")
	}
}

func TestEncodeHash(t *testing.T) {
	h := EncodeHash("pw", testSalt)

	if !strings.HasPrefix(h, testSalt) {
		t.Errorf("hash %q does not start with salt", h)
	}
	if len(h) != SaltLength+64 {
		t.Errorf("len(hash) = %d, want %d", len(h), SaltLength+64)
	}
}

func TestSaltFromHash(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		want    string
		wantErr bool
	}{
		{name: "valid", hash: EncodeHash("pw", testSalt), want: testSalt},
		{name: "too short", hash: "abc", wantErr: true},
		{name: "non-hex salt", hash: strings.Repeat("z", SaltLength) + strings.Repeat("0", 64), wantErr: true},
		{name: "empty", hash: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SaltFromHash(tt.hash)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SaltFromHash() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SaltFromHash() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	hash := EncodeHash("Secret123!", testSalt)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "correct password", password: "Secret123!", hash: hash, want: true},
		{name: "wrong password", password: "secret123!", hash: hash, want: false},
		{name: "empty password", password: "", hash: hash, want: false},
		{name: "malformed hash", password: "Secret123!", hash: "nothex", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveSessionKey_Deterministic(t *testing.T) {
	k1, err := DeriveSessionKey("Secret123!", testSalt)
	if err != nil {
		t.Fatalf("DeriveSessionKey() error = %v", err)
	}
	k2, err := DeriveSessionKey("Secret123!", testSalt)
	if err != nil {
		t.Fatalf("DeriveSessionKey() error = %v", err)
	}

	if len(k1.Bytes()) != KeySize {
		t.Errorf("key length = %d, want %d", len(k1.Bytes()), KeySize)
	}
	if !k1.Equal(k2) {
		t.Error("same inputs produced different keys")
	}
}

func TestDeriveSessionKey_DifferentInputs(t *testing.T) {
	base, err := DeriveSessionKey("Secret123!", testSalt)
	if err != nil {
		t.Fatalf("DeriveSessionKey() error = %v", err)
	}

	otherSalt, err := DeriveSessionKey("Secret123!", "ffeeddccbbaa99887766554433221100")
	if err != nil {
		t.Fatalf("DeriveSessionKey() error = %v", err)
	}
	otherPassword, err := DeriveSessionKey("Secret123?", testSalt)
	if err != nil {
		t.Fatalf("DeriveSessionKey() error = %v", err)
	}

	if base.Equal(otherSalt) {
		t.Error("different salts produced the same key")
	}
	if base.Equal(otherPassword) {
		t.Error("different passwords produced the same key")
	}
}

func TestDeriveSessionKey_InvalidSalt(t *testing.T) {
	for _, salt := range []string{"", "short", strings.Repeat("g", SaltLength)} {
		_, err := DeriveSessionKey("pw", salt)
		if !errors.Is(err, ErrKeyDerivation) {
			t.Errorf("DeriveSessionKey(salt=%q) error = %v, want ErrKeyDerivation", salt, err)
		}
	}
}

func TestSessionKey_Destroy(t *testing.T) {
	k, err := DeriveSessionKey("pw", testSalt)
	if err != nil {
		t.Fatalf("DeriveSessionKey() error = %v", err)
	}
	raw := k.Bytes()

	k.Destroy()

	if !k.Destroyed() {
		t.Error("Destroyed() = false after Destroy")
	}
	if k.Bytes() != nil {
		t.Error("Bytes() should be nil after Destroy")
	}
	for i, b := range raw {
		if b != 0 {
			t.Fatalf("key byte %d not zeroed", i)
		}
	}

	var nilKey *SessionKey
	nilKey.Destroy()
	if !nilKey.Destroyed() {
		t.Error("nil key should report destroyed")
	}
}

func TestNewSessionKey_Copies(t *testing.T) {
	raw := []byte{1, 2, 3}
	k := NewSessionKey(raw)
	raw[0] = 9

	if k.Bytes()[0] != 1 {
		t.Error("NewSessionKey did not copy its input")
	}
}
