package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"

	"pm-go/internal/pm"
)

// AgeEncryptor implements pm.ExportEncryptor with age passphrase (scrypt)
// encryption. Output is optionally ASCII-armored; Decrypt accepts both forms.
type AgeEncryptor struct {
	armor      bool
	workFactor int
}

var _ pm.ExportEncryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates an AgeEncryptor. A workFactor of 0 keeps age's
// default scrypt cost.
func NewAgeEncryptor(armored bool, workFactor int) *AgeEncryptor {
	return &AgeEncryptor{armor: armored, workFactor: workFactor}
}

// Encrypt reads plaintext from r and writes age-encrypted ciphertext to w.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer, passphrase string) error {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if e.workFactor > 0 {
		recipient.SetWorkFactor(e.workFactor)
	}

	out := w
	var armorWriter io.WriteCloser
	if e.armor {
		armorWriter = armor.NewWriter(w)
		out = armorWriter
	}

	encWriter, err := age.Encrypt(out, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}

	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	if armorWriter != nil {
		if err := armorWriter.Close(); err != nil {
			return fmt.Errorf("finalizing armor: %w", err)
		}
	}
	return nil
}

// Decrypt reads age ciphertext, armored or binary, from r and writes the
// plaintext to w.
func (e *AgeEncryptor) Decrypt(r io.Reader, w io.Writer, passphrase string) error {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt identity: %w", err)
	}

	br := bufio.NewReader(r)
	var in io.Reader = br
	if start, _ := br.Peek(len(armor.Header)); bytes.Equal(start, []byte(armor.Header)) {
		in = armor.NewReader(br)
	}

	decReader, err := age.Decrypt(in, identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}

	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}

func (e *AgeEncryptor) NeedsPassphrase() bool { return true }

func (e *AgeEncryptor) Extension() string { return ".age" }
