package encryption

import (
	"bytes"
	"fmt"
	"io"

	"pm-go/internal/pm"
)

// testHeader is prepended to data by TestEncryptor to make encrypted output
// clearly different from plaintext while remaining deterministic and reversible.
var testHeader = []byte("PMENC\x00\x00\x00")

// TestEncryptor is a simple, deterministic encryptor for testing.
// It prepends a fixed 8-byte header followed by the passphrase length and
// passphrase, and checks them during decryption. No real cryptography.
type TestEncryptor struct{}

var _ pm.ExportEncryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer, passphrase string) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := w.Write(append([]byte{byte(len(passphrase))}, passphrase...)); err != nil {
		return fmt.Errorf("writing passphrase marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Decrypt(r io.Reader, w io.Writer, passphrase string) error {
	header := make([]byte, len(testHeader)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header[:len(testHeader)], testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}

	stored := make([]byte, header[len(testHeader)])
	if _, err := io.ReadFull(r, stored); err != nil {
		return fmt.Errorf("reading passphrase marker: %w", err)
	}
	if string(stored) != passphrase {
		return fmt.Errorf("wrong passphrase")
	}

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) NeedsPassphrase() bool { return true }

func (e *TestEncryptor) Extension() string { return ".test" }
