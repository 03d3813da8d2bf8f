package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2SHA256Prefix = "$pbkdf2-sha256$"

// PasswordHasher hashes new passwords with bcrypt and verifies both bcrypt
// hashes and legacy passlib pbkdf2-sha256 hashes. The hash prefix selects the
// algorithm, so stored values never need a side column.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using the given bcrypt cost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash hashes a plaintext password with the configured cost.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hashed. Unknown or corrupt hashes never match.
func (h *PasswordHasher) Verify(plain, hashed string) bool {
	switch {
	case isBcrypt(hashed):
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
	case strings.HasPrefix(hashed, pbkdf2SHA256Prefix):
		return verifyPBKDF2SHA256(plain, hashed)
	default:
		return false
	}
}

// NeedsRehash reports whether hashed should be replaced by a fresh Hash.
func (h *PasswordHasher) NeedsRehash(hashed string) bool {
	if !isBcrypt(hashed) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		return true
	}
	return cost != h.cost
}

func isBcrypt(hashed string) bool {
	return strings.HasPrefix(hashed, "$2a$") ||
		strings.HasPrefix(hashed, "$2b$") ||
		strings.HasPrefix(hashed, "$2y$")
}

// verifyPBKDF2SHA256 checks "$pbkdf2-sha256$<rounds>$<salt>$<checksum>" where
// salt and checksum use passlib's adapted base64 ('.' instead of '+', no padding).
func verifyPBKDF2SHA256(plain, hashed string) bool {
	parts := strings.Split(strings.TrimPrefix(hashed, pbkdf2SHA256Prefix), "$")
	if len(parts) != 3 {
		return false
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds <= 0 {
		return false
	}
	salt, err := decodeAB64(parts[1])
	if err != nil {
		return false
	}
	want, err := decodeAB64(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(plain), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func decodeAB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
