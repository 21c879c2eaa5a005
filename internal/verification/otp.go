package verification

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"math/big"
)

// GenerateCode returns a numeric one-time code of the given length using crypto/rand.
func GenerateCode(digits int) (string, error) {
	if digits < 4 {
		return "", errors.New("verification: code must have at least 4 digits")
	}
	ten := big.NewInt(10)
	s := make([]byte, digits)
	for i := range s {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		s[i] = '0' + byte(n.Int64())
	}
	return string(s), nil
}

// HashCode returns the hex SHA-256 of code. Only hashes are kept in memory.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// CodeEqual compares code against storedHash in constant time.
func CodeEqual(code, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(code)), []byte(storedHash)) == 1
}
