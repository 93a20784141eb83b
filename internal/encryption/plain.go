package encryption

import (
	"fmt"
	"io"

	"pm-go/internal/pm"
)

// PlainEncryptor writes exports unprotected, in the CSV format other
// password managers import.
type PlainEncryptor struct{}

var _ pm.ExportEncryptor = PlainEncryptor{}

func (PlainEncryptor) Encrypt(r io.Reader, w io.Writer, _ string) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) Decrypt(r io.Reader, w io.Writer, _ string) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) NeedsPassphrase() bool { return false }

func (PlainEncryptor) Extension() string { return "" }
