package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/raaihank/fieldmask/internal/policy"
)

const hashPrefixLen = 16

// Hash digests the value. The sha256 algorithm yields a 16-character hex
// prefix of the full digest; murmur3 yields an 8-character hex of the 32-bit
// sum. A salt, when present, is appended to the input before hashing.
//
// Deterministic mode hashes the salted value directly, so the same
// input+salt always produces the same output across calls and process runs.
// Non-deterministic mode additionally mixes in the current time and a random
// component, so repeated calls differ.
//
// When the field's data type is email or phone the output is shaped to look
// like one, preserving downstream format validation.
func (a *Applier) Hash(value string, strat *policy.MaskingStrategy, field *policy.FieldInfo) string {
	input := value + strat.Salt
	if !strat.Deterministic {
		input = fmt.Sprintf("%s:%d:%d", input, time.Now().UnixNano(), rand.Int63())
	}

	var digest string
	switch strat.Algorithm {
	case "murmur3":
		digest = fmt.Sprintf("%08x", murmur3.Sum32([]byte(input)))
	default:
		sum := sha256.Sum256([]byte(input))
		digest = hex.EncodeToString(sum[:])[:hashPrefixLen]
	}

	if field != nil {
		switch strings.ToLower(field.DataType) {
		case "email":
			return digest + "@masked.example.com"
		case "phone":
			return formatHashAsPhone(digest)
		}
	}

	return digest
}

// formatHashAsPhone shapes a hex digest into a 555 phone number.
func formatHashAsPhone(digest string) string {
	h := murmur3.Sum32([]byte(digest))
	return fmt.Sprintf("555-%03d-%04d", h%1000, (h/1000)%10000)
}
