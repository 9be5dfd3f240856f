package vault

import (
	"context"
	"fmt"
	"sync"
)

// MemoryVault is an in-process TokenVault, safe for concurrent use. It is
// the default backend and the one used in tests.
type MemoryVault struct {
	mu         sync.RWMutex
	namespaces map[string]*memoryNamespace
}

type memoryNamespace struct {
	valueToToken map[string]string
	tokenToValue map[string]string
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{namespaces: make(map[string]*memoryNamespace)}
}

// Init prepares a namespace. Re-initializing an existing namespace keeps its
// mappings.
func (v *MemoryVault) Init(_ context.Context, namespace string) error {
	if namespace == "" {
		return fmt.Errorf("vault namespace must not be empty")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.namespaces[namespace]; !ok {
		v.namespaces[namespace] = &memoryNamespace{
			valueToToken: make(map[string]string),
			tokenToValue: make(map[string]string),
		}
	}
	return nil
}

// Clear removes a namespace and all of its mappings.
func (v *MemoryVault) Clear(_ context.Context, namespace string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.namespaces, namespace)
	return nil
}

// Tokenize returns the token for a value, minting one on first use.
func (v *MemoryVault) Tokenize(_ context.Context, namespace, value string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ns, ok := v.namespaces[namespace]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrVaultNotInitialized, namespace)
	}

	if token, ok := ns.valueToToken[value]; ok {
		return token, nil
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}
	ns.valueToToken[value] = token
	ns.tokenToValue[token] = value
	return token, nil
}

// Detokenize reverses the mapping for a previously issued token.
func (v *MemoryVault) Detokenize(_ context.Context, namespace, token string) (string, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ns, ok := v.namespaces[namespace]
	if !ok {
		return "", false, fmt.Errorf("%w: %s", ErrVaultNotInitialized, namespace)
	}

	value, ok := ns.tokenToValue[token]
	return value, ok, nil
}
