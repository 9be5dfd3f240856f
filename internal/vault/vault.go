// Package vault provides the reversible value-to-token mapping used by the
// tokenize strategy. Vaults are namespaced so separate jobs or tenants never
// share token spaces, and they outlive any single masking engine.
package vault

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrVaultNotInitialized is returned when a tokenize call targets a
// namespace that was never initialized. Masking fails closed on it.
var ErrVaultNotInitialized = errors.New("vault not initialized")

// TokenVault is a bidirectional value-to-token mapping store.
type TokenVault interface {
	// Init prepares the namespace for use. Tokenize against an
	// uninitialized namespace returns ErrVaultNotInitialized.
	Init(ctx context.Context, namespace string) error

	// Clear removes the namespace and all of its mappings.
	Clear(ctx context.Context, namespace string) error

	// Tokenize returns the token for a value, minting one on first use.
	// Tokenizing the same value again returns the previously issued token.
	Tokenize(ctx context.Context, namespace, value string) (string, error)

	// Detokenize reverses the mapping. The bool result is false when the
	// token is unknown; that is not an error.
	Detokenize(ctx context.Context, namespace, token string) (string, bool, error)
}

const (
	tokenPrefix   = "TOK_"
	tokenBodyLen  = 24
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// newToken mints a token of the fixed shape TOK_ followed by 24 characters
// drawn from [A-Z0-9].
func newToken() (string, error) {
	body := make([]byte, tokenBodyLen)
	if _, err := rand.Read(body); err != nil {
		return "", fmt.Errorf("failed to mint token: %w", err)
	}
	for i, b := range body {
		body[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return tokenPrefix + string(body), nil
}
