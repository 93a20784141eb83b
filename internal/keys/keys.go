// Package keys turns a user password and salt into the verification hash
// stored in the user registry and the AES-256 session key used for the vault.
//
// Both outputs are deterministic for a given (password, salt) pair. Login
// relies on this: the salt is recovered from the stored hash and the session
// key is re-derived from it.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the number of random bytes in a salt.
	SaltSize = 16
	// SaltLength is the length of a hex-encoded salt and of the salt prefix
	// of an encoded password hash.
	SaltLength = SaltSize * 2
	// Iterations is the PBKDF2 iteration count for session keys.
	Iterations = 100000
	// KeySize is the session key length in bytes (AES-256).
	KeySize = 32
)

// ErrKeyDerivation is returned when a session key cannot be derived.
var ErrKeyDerivation = errors.New("key derivation failed")

// GenerateSalt returns SaltSize bytes from crypto/rand, hex encoded.
func GenerateSalt() (string, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPassword returns hex(SHA-256(salt || password)).
func HashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

// EncodeHash returns the stored form of a password hash: the salt followed by
// HashPassword(password, salt).
func EncodeHash(password, salt string) string {
	return salt + HashPassword(password, salt)
}

// SaltFromHash extracts the salt prefix of an encoded password hash.
func SaltFromHash(hash string) (string, error) {
	if len(hash) != SaltLength+sha256.Size*2 {
		return "", fmt.Errorf("malformed password hash: length %d", len(hash))
	}
	salt := hash[:SaltLength]
	if err := validateSalt(salt); err != nil {
		return "", err
	}
	return salt, nil
}

// VerifyPassword recomputes the encoded hash with the embedded salt and
// compares the full string in constant time.
func VerifyPassword(password, hash string) bool {
	salt, err := SaltFromHash(hash)
	if err != nil {
		return false
	}
	candidate := EncodeHash(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}

// DeriveSessionKey derives the vault key with PBKDF2-HMAC-SHA256. The salt is
// used in its textual (hex) form, the same bytes that prefix the stored hash.
func DeriveSessionKey(password, salt string) (*SessionKey, error) {
	if err := validateSalt(salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	k := pbkdf2.Key([]byte(password), []byte(salt), Iterations, KeySize, sha256.New)
	if len(k) != KeySize {
		return nil, fmt.Errorf("%w: derived key has unexpected length %d", ErrKeyDerivation, len(k))
	}
	return &SessionKey{b: k}, nil
}

func validateSalt(salt string) error {
	if len(salt) != SaltLength {
		return fmt.Errorf("salt must be %d hex characters, got %d", SaltLength, len(salt))
	}
	if _, err := hex.DecodeString(salt); err != nil {
		return fmt.Errorf("salt is not hex: %w", err)
	}
	return nil
}
