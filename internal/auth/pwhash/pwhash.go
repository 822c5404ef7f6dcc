// Package pwhash hashes admin passwords with PBKDF2-SHA256 and a random
// per-password salt. Hashes are stored as
// pbkdf2$<iterations>$<salt-b64>$<key-b64>.
package pwhash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 210_000
	saltLen    = 16
	keyLen     = 32
)

type PasswordHasher struct {
	SaltSize int `mapstructure:"salt_size"`
}

func New(cfg *PasswordHasher) *PasswordHasher {
	if cfg == nil || cfg.SaltSize <= 0 {
		return &PasswordHasher{SaltSize: saltLen}
	}
	return cfg
}

// HashPassword derives a new hash with a fresh salt.
func (ph *PasswordHasher) HashPassword(password string) (string, error) {
	salt := make([]byte, ph.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("can't generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
	return fmt.Sprintf("pbkdf2$%d$%s$%s",
		iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Validate reports whether the password matches the stored hash.
func (ph *PasswordHasher) Validate(password, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 4 || parts[0] != "pbkdf2" {
		return false
	}
	iter, err := strconv.Atoi(parts[1])
	if err != nil || iter <= 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, iter, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
