// Package hasher computes the keyed hashes the crack server works with.
package hasher

import (
	"github.com/digitive/crypt"
	"github.com/pkg/errors"
)

const (
	// SaltLength is the number of salt characters leading every ciphertext.
	SaltLength = 2
	// DigestLength is the length of the encoded DES digest after the salt.
	DigestLength = 11
	// CiphertextLength is the full length of a traditional crypt(3) result.
	CiphertextLength = SaltLength + DigestLength
	// MaxPlaintextLength is the number of plaintext bytes DES crypt consumes.
	MaxPlaintextLength = 8
)

// Hasher maps a plaintext and salt to a ciphertext that starts with the salt.
// Implementations must be safe for concurrent use and must not share mutable
// state between calls.
type Hasher interface {
	Hash(plaintext, salt string) (string, error)
}

type desHasher struct{}

// NewDES returns the traditional DES-based crypt(3) hasher.
func NewDES() Hasher {
	return desHasher{}
}

func (desHasher) Hash(plaintext, salt string) (string, error) {
	out, err := crypt.Crypt(plaintext, salt)
	if err != nil {
		return "", errors.Wrap(err, "des crypt")
	}
	return out, nil
}

// ValidSalt reports whether s is exactly two characters from [A-Za-z0-9./].
func ValidSalt(s string) bool {
	if len(s) != SaltLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isSaltChar(s[i]) {
			return false
		}
	}
	return true
}

func isSaltChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.' || c == '/':
		return true
	}
	return false
}

// Truncate cuts plaintext to the bytes DES crypt actually consumes.
func Truncate(plaintext string) string {
	if len(plaintext) > MaxPlaintextLength {
		return plaintext[:MaxPlaintextLength]
	}
	return plaintext
}
