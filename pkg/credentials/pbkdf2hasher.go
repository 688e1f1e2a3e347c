package credentials

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Hasher defines the interface for password hashing implementations
type Hasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash.
	// Malformed stored hashes verify as false rather than returning an error.
	Verify(password, hashedPassword string) bool
}

// Pbkdf2Hasher implements Hasher using PBKDF2-HMAC-SHA512
type Pbkdf2Hasher struct {
	iterations int
	saltLength int
	keyLength  int
}

// NewPbkdf2Hasher creates a new Pbkdf2Hasher with default parameters
func NewPbkdf2Hasher() *Pbkdf2Hasher {
	return &Pbkdf2Hasher{
		iterations: 100_000,
		saltLength: 16,
		keyLength:  32,
	}
}

// Hash derives a key from the password with a fresh random salt.
// Encoding is HEX(hash)-HEX(salt), both uppercase.
func (h *Pbkdf2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, h.keyLength, sha512.New)

	return fmt.Sprintf("%s-%s",
		strings.ToUpper(hex.EncodeToString(key)),
		strings.ToUpper(hex.EncodeToString(salt)),
	), nil
}

// Verify implements Hasher.Verify. The comparison is constant time over the
// derived key; a hash that does not decode fails closed.
func (h *Pbkdf2Hasher) Verify(password, hashedPassword string) bool {
	if password == "" || hashedPassword == "" {
		return false
	}

	parts := strings.Split(hashedPassword, "-")
	if len(parts) != 2 {
		return false
	}

	storedKey, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	if len(storedKey) != h.keyLength {
		return false
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, h.keyLength, sha512.New)

	return subtle.ConstantTimeCompare(storedKey, key) == 1
}
