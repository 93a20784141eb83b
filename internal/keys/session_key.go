package keys

import "crypto/subtle"

// SessionKey holds a derived AES-256 key in memory. It is never serialized.
// Destroy zeroes the key material; a destroyed key has no bytes.
type SessionKey struct {
	b []byte
}

// NewSessionKey wraps raw key material. The slice is copied.
func NewSessionKey(raw []byte) *SessionKey {
	b := make([]byte, len(raw))
	copy(b, raw)
	return &SessionKey{b: b}
}

// Bytes returns the key material. Callers must not retain or modify it.
func (k *SessionKey) Bytes() []byte {
	if k == nil {
		return nil
	}
	return k.b
}

// Equal reports whether two keys hold identical material.
func (k *SessionKey) Equal(other *SessionKey) bool {
	if k.Destroyed() || other.Destroyed() {
		return false
	}
	return subtle.ConstantTimeCompare(k.b, other.b) == 1
}

// Destroy overwrites the key material with zeros and releases it.
func (k *SessionKey) Destroy() {
	if k == nil {
		return
	}
	for i := range k.b {
		k.b[i] = 0
	}
	k.b = nil
}

// Destroyed reports whether the key is nil or has been destroyed.
func (k *SessionKey) Destroyed() bool {
	return k == nil || len(k.b) == 0
}
