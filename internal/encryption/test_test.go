package encryption

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestTestEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewTestEncryptor()

			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted, "any-passphrase"); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			// The header makes even empty input differ.
			if bytes.Equal(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output is identical to plaintext")
			}
			if !bytes.HasPrefix(encrypted.Bytes(), testHeader) {
				t.Error("encrypted output does not start with test header")
			}

			var decrypted bytes.Buffer
			if err := e.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted, "any-passphrase"); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}

			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %q, want %q", decrypted.Bytes(), tt.input)
			}
		})
	}
}

func TestTestEncryptor_ChecksumsDiffer(t *testing.T) {
	t.Parallel()

	input := []byte("some file content")

	e := NewTestEncryptor()
	var encrypted bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(input), &encrypted, "pw"); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	plainHash := sha256.Sum256(input)
	encHash := sha256.Sum256(encrypted.Bytes())

	if hex.EncodeToString(plainHash[:]) == hex.EncodeToString(encHash[:]) {
		t.Error("plaintext and encrypted checksums should differ")
	}
}

func TestTestEncryptor_Deterministic(t *testing.T) {
	t.Parallel()

	input := []byte("deterministic test")
	e := NewTestEncryptor()

	var enc1, enc2 bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(input), &enc1, "pw"); err != nil {
		t.Fatalf("first Encrypt() error = %v", err)
	}
	if err := e.Encrypt(bytes.NewReader(input), &enc2, "pw"); err != nil {
		t.Fatalf("second Encrypt() error = %v", err)
	}

	if !bytes.Equal(enc1.Bytes(), enc2.Bytes()) {
		t.Error("same input produced different encrypted output")
	}
}

func TestTestEncryptor_WrongPassphrase(t *testing.T) {
	t.Parallel()

	e := NewTestEncryptor()
	var encrypted bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("data")), &encrypted, "right"); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	var out bytes.Buffer
	if err := e.Decrypt(&encrypted, &out, "wrong"); err == nil {
		t.Error("Decrypt() with wrong passphrase should return error")
	}
}

func TestTestEncryptor_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "invalid header", input: []byte("NOT_VALID_HEADER_data")},
		{name: "truncated header", input: []byte("PM")},
		{name: "empty", input: nil},
		{name: "truncated passphrase", input: append(append([]byte{}, testHeader...), 5, 'a')},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			if err := NewTestEncryptor().Decrypt(bytes.NewReader(tt.input), &out, "a"); err == nil {
				t.Error("Decrypt() should return error")
			}
		})
	}
}

func TestPlainEncryptor_PassThrough(t *testing.T) {
	t.Parallel()

	input := []byte("name,url,username,password,notes\n")
	var enc, dec bytes.Buffer
	if err := (PlainEncryptor{}).Encrypt(bytes.NewReader(input), &enc, ""); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.Equal(enc.Bytes(), input) {
		t.Errorf("Encrypt() = %q, want %q", enc.Bytes(), input)
	}
	if err := (PlainEncryptor{}).Decrypt(&enc, &dec, ""); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(dec.Bytes(), input) {
		t.Errorf("Decrypt() = %q, want %q", dec.Bytes(), input)
	}
	if (PlainEncryptor{}).NeedsPassphrase() {
		t.Error("NeedsPassphrase() = true, want false")
	}
}
