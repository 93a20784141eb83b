// Package passwords generates random passwords and rates password strength.
package passwords

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	MinLength     = 4
	MaxLength     = 40
	DefaultLength = 16
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	numberChars = "0123456789"
	symbolChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// ErrNoCharacterSet is returned when every character set is disabled.
var ErrNoCharacterSet = errors.New("at least one character set must be enabled")

// Options controls Generate.
type Options struct {
	Length  int
	Upper   bool
	Lower   bool
	Numbers bool
	Symbols bool
}

// DefaultOptions returns 16 characters drawn from all four sets.
func DefaultOptions() Options {
	return Options{
		Length:  DefaultLength,
		Upper:   true,
		Lower:   true,
		Numbers: true,
		Symbols: true,
	}
}

func (o Options) charset() string {
	var chars string
	if o.Upper {
		chars += upperChars
	}
	if o.Lower {
		chars += lowerChars
	}
	if o.Numbers {
		chars += numberChars
	}
	if o.Symbols {
		chars += symbolChars
	}
	return chars
}

// Generate returns a password of opts.Length characters, each chosen
// uniformly from the union of the enabled sets using crypto/rand.
func Generate(opts Options) (string, error) {
	if opts.Length < MinLength || opts.Length > MaxLength {
		return "", fmt.Errorf("length must be between %d and %d, got %d", MinLength, MaxLength, opts.Length)
	}
	chars := opts.charset()
	if chars == "" {
		return "", ErrNoCharacterSet
	}

	limit := big.NewInt(int64(len(chars)))
	out := make([]byte, opts.Length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("reading random index: %w", err)
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}
