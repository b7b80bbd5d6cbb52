package shortener

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	MinCodeLength = 3
	MaxCodeLength = 10
)

// Codes are generated from letters and digits only; custom codes may
// additionally contain '-' and '_'.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateCode returns length characters drawn uniformly and independently
// from the alphanumeric alphabet using a cryptographically secure source.
// Lengths below the minimum are raised to it. Uniqueness is enforced by the
// caller, not here.
func GenerateCode(length int) (string, error) {
	if length < MinCodeLength {
		length = MinCodeLength
	}

	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random source failed: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
