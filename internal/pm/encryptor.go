package pm

import "io"

// ExportEncryptor protects CSV exports with a passphrase chosen at export
// time. It is independent of the vault key.
type ExportEncryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer, passphrase string) error

	// Decrypt reads ciphertext from r and writes plaintext to w. It fails if
	// the passphrase is wrong or the input was not produced by Encrypt.
	Decrypt(r io.Reader, w io.Writer, passphrase string) error

	// NeedsPassphrase reports whether Encrypt and Decrypt use the passphrase.
	NeedsPassphrase() bool

	// Extension is appended to export file names, e.g. ".age".
	Extension() string
}
