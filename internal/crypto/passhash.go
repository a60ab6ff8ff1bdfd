// Package crypto implements password hashing and verification for user and admin accounts.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Params are the Argon2id cost settings.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams are tuned for server-side hashing.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// Hasher derives and checks password hashes with fixed parameters.
type Hasher struct{ p Params }

// NewHasher returns a Hasher using p.
func NewHasher(p Params) *Hasher { return &Hasher{p: p} }

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash draws a fresh salt and returns the Argon2id hash of password with it.
func (h *Hasher) Hash(password string) (hash, salt []byte, err error) {
	salt, err = RandBytes(h.p.SaltLen)
	if err != nil {
		return nil, nil, err
	}
	return h.derive([]byte(password), salt), salt, nil
}

// Verify reports whether password matches the stored hash and salt.
func (h *Hasher) Verify(password string, salt, expected []byte) bool {
	got := h.derive([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

func (h *Hasher) derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, h.p.Time, h.p.Memory, h.p.Threads, h.p.KeyLen)
}
