package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for new password hashes.
var BcryptCost = bcrypt.DefaultCost

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// dummy returns a hash at BcryptCost, built on first use, so a login for an
// unknown email costs the same as a wrong password for a known one.
func dummy() []byte {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword(prehash("mediclear-dummy-password"), BcryptCost)
	})
	return dummyHash
}

// prehash maps any password to 44 bytes so bcrypt's 72 byte input limit
// never truncates or rejects it.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prehash(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// IsHashed reports whether stored looks like a bcrypt hash.
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// VerifyPassword checks plain against stored. Rows written before hashing was
// introduced hold plaintext; those still verify, and needsRehash is true so
// the caller can upgrade them.
func VerifyPassword(stored, plain string) (ok, needsRehash bool) {
	if IsHashed(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), prehash(plain)) == nil, false
	}
	if stored == "" {
		return false, false
	}
	match := subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
	return match, match
}

// BurnPasswordCheck spends one bcrypt comparison at BcryptCost.
func BurnPasswordCheck(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummy(), prehash(plain))
}
