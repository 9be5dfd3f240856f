package strategy

import (
	"context"
	"fmt"

	"github.com/raaihank/fieldmask/internal/policy"
)

// Tokenize swaps the value for a vault-issued token. The vault namespace
// must have been initialized by the job owner; a missing namespace is a
// hard error so masking fails closed.
func (a *Applier) Tokenize(ctx context.Context, value string, strat *policy.MaskingStrategy) (string, error) {
	if strat.VaultRef == "" {
		return "", fmt.Errorf("tokenize strategy requires a vault ref")
	}
	return a.vault.Tokenize(ctx, strat.VaultRef, value)
}

// Detokenize resolves a previously issued token back to its value. An
// unknown token yields ok=false rather than an error.
func (a *Applier) Detokenize(ctx context.Context, vaultRef, token string) (string, bool, error) {
	return a.vault.Detokenize(ctx, vaultRef, token)
}
