package strategy

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/raaihank/fieldmask/internal/policy"
)

// EncryptFormatPreserving transforms the value under the key referenced by
// the strategy's key ID. A missing key is a hard error; masking must fail
// closed rather than pass sensitive data through.
//
// With preserve_format set, each ASCII letter or digit is shifted by a keyed
// positional offset within its character class, so the output has the same
// length and character-class layout as the input and punctuation stays put.
// This substitution is reversible obfuscation, not a vetted FPE scheme.
// Without preserve_format, the value is AES-GCM encrypted with a random
// nonce and base64-encoded.
func (a *Applier) EncryptFormatPreserving(value string, strat *policy.MaskingStrategy) (string, error) {
	key, err := a.keys.Key(strat.KeyID)
	if err != nil {
		return "", err
	}

	if strat.PreserveFormat {
		return substitute(value, key, false), nil
	}
	return a.encryptAESGCM(value, key)
}

// DecryptFormatPreserving reverses a format-preserving substitution for a
// caller holding the same key.
func (a *Applier) DecryptFormatPreserving(value, keyID string) (string, error) {
	key, err := a.keys.Key(keyID)
	if err != nil {
		return "", err
	}
	return substitute(value, key, true), nil
}

// substitute applies the keyed positional offset cipher. Lowercase letters,
// uppercase letters, and digits each shift within their own class; every
// other character is left untouched.
func substitute(value string, key []byte, invert bool) string {
	out := []byte(value)
	for i := 0; i < len(out); i++ {
		offset := int(key[i%len(key)]) + i
		if invert {
			offset = -offset
		}
		switch c := out[i]; {
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + byte(mod(int(c-'a')+offset, 26))
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + byte(mod(int(c-'A')+offset, 26))
		case c >= '0' && c <= '9':
			out[i] = '0' + byte(mod(int(c-'0')+offset, 10))
		}
	}
	return string(out)
}

func mod(n, m int) int {
	return ((n % m) + m) % m
}

// encryptAESGCM is the non-format-preserving fallback: authenticated
// encryption with a fresh nonce per call.
func (a *Applier) encryptAESGCM(value string, key []byte) (string, error) {
	sum := sha256.Sum256(key)
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return "", fmt.Errorf("failed to construct cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to construct cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}
