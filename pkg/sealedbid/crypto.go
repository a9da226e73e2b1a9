// Package sealedbid implements the commit-reveal hashing used by
// sealed-bid auctions: bidders commit to base64(SHA-256(amount||salt))
// and later reveal amount and salt for verification.
package sealedbid

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

const saltLen = 16

// GenerateSalt returns a base64-encoded 16-byte random salt.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// HashBid returns base64(SHA-256(amount||salt)). The amount is its
// canonical decimal string form.
func HashBid(amount, salt string) string {
	sum := sha256.Sum256([]byte(amount + salt))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifyBid recomputes the commitment for amount and salt and compares
// it against the expected hash in constant time.
func VerifyBid(amount, salt, expectedHash string) bool {
	computed := HashBid(amount, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(expectedHash)) == 1
}
