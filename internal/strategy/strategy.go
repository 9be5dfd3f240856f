// Package strategy implements the field transformations the masking engine
// dispatches to: redact, hash, fake, format-preserving substitution, and
// tokenize. All transformations operate on the string form of a value;
// null handling belongs to the engine.
package strategy

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/raaihank/fieldmask/internal/keystore"
	"github.com/raaihank/fieldmask/internal/vault"
)

// Applier bundles the shared resources strategies depend on. The key store
// and token vault are caller-owned and outlive any engine.
type Applier struct {
	keys   keystore.KeyStore
	vault  vault.TokenVault
	logger *zap.Logger
}

// NewApplier creates a strategy applier over the given key store and vault.
func NewApplier(keys keystore.KeyStore, tokenVault vault.TokenVault, logger *zap.Logger) *Applier {
	return &Applier{
		keys:   keys,
		vault:  tokenVault,
		logger: logger,
	}
}

// Stringify converts an opaque record value to its string form. Nil maps to
// the empty string; that is a data condition, never an error.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing fraction.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
