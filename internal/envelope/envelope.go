// Package envelope implements the authenticated encryption format used for
// vault blobs: a 16-byte random IV followed by the AES-256-GCM ciphertext
// with its 16-byte tag appended.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"pm-go/internal/keys"
)

// IVSize is the length of the random IV prefixed to every blob.
const IVSize = 16

var (
	// ErrEnvelopeFormat is returned when a blob is too short to hold an IV.
	ErrEnvelopeFormat = errors.New("malformed envelope")
	// ErrDecryption is returned when authentication fails: wrong key,
	// tampered ciphertext, tampered IV or truncated tag.
	ErrDecryption = errors.New("decryption failed")
)

// Encrypt seals plaintext under key with a fresh random IV.
func Encrypt(plaintext []byte, key *keys.SessionKey) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, IVSize, IVSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}

	return aead.Seal(out, out[:IVSize], plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt.
func Decrypt(blob []byte, key *keys.SessionKey) ([]byte, error) {
	if len(blob) < IVSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrEnvelopeFormat, len(blob), IVSize)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	plaintext, err := aead.Open(nil, blob[:IVSize], blob[IVSize:], nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func newAEAD(key *keys.SessionKey) (cipher.AEAD, error) {
	if key.Destroyed() {
		return nil, errors.New("session key is not available")
	}
	if len(key.Bytes()) != keys.KeySize {
		return nil, fmt.Errorf("session key must be %d bytes", keys.KeySize)
	}

	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return aead, nil
}
