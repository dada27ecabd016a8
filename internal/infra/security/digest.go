package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	saltLength   = 5
	saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// GenerateSalt returns a random per-account salt of 5 letters.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	letters := make([]byte, saltLength)
	for i, b := range buf {
		letters[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}

	return string(letters), nil
}

// ComputeDigest derives the stored credential digest as
// SHA256(pepper || secret || salt), uppercase hex encoded. Password and
// security-question answers share this format.
func ComputeDigest(pepper, secret, salt string) string {
	sum := sha256.Sum256([]byte(pepper + secret + salt))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifyDigest recomputes the digest for the candidate secret and compares it
// against the stored value in constant time.
func VerifyDigest(pepper, secret, salt, stored string) bool {
	computed := ComputeDigest(pepper, secret, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
}
