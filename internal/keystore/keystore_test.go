package keystore

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryKeyStore(t *testing.T) {
	t.Run("RegisterAndLookup", func(t *testing.T) {
		s := NewMemoryKeyStore()
		material := []byte("0123456789abcdef0123456789abcdef")
		if err := s.RegisterKey("k1", material); err != nil {
			t.Fatalf("RegisterKey failed: %v", err)
		}

		got, err := s.Key("k1")
		if err != nil {
			t.Fatalf("Key failed: %v", err)
		}
		if !bytes.Equal(got, material) {
			t.Error("returned key does not match registered material")
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		s := NewMemoryKeyStore()
		if _, err := s.Key("absent"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("err = %v, want ErrKeyNotFound", err)
		}
	})

	t.Run("GenerateKey", func(t *testing.T) {
		s := NewMemoryKeyStore()
		key, err := s.GenerateKey("gen")
		if err != nil {
			t.Fatalf("GenerateKey failed: %v", err)
		}
		if len(key) != generatedKeySize {
			t.Errorf("generated key length = %d, want %d", len(key), generatedKeySize)
		}

		stored, err := s.Key("gen")
		if err != nil {
			t.Fatalf("Key failed: %v", err)
		}
		if !bytes.Equal(stored, key) {
			t.Error("stored key does not match generated key")
		}
	})

	t.Run("RegisterReplaces", func(t *testing.T) {
		s := NewMemoryKeyStore()
		if err := s.RegisterKey("k1", []byte("first-version-key-material000000")); err != nil {
			t.Fatalf("RegisterKey failed: %v", err)
		}
		if err := s.RegisterKey("k1", []byte("second-version-key-material00000")); err != nil {
			t.Fatalf("RegisterKey failed: %v", err)
		}
		got, err := s.Key("k1")
		if err != nil {
			t.Fatalf("Key failed: %v", err)
		}
		if string(got) != "second-version-key-material00000" {
			t.Error("re-registered key was not replaced")
		}
	})

	t.Run("ReturnedKeyIsACopy", func(t *testing.T) {
		s := NewMemoryKeyStore()
		if err := s.RegisterKey("k1", []byte("0123456789abcdef0123456789abcdef")); err != nil {
			t.Fatalf("RegisterKey failed: %v", err)
		}
		first, _ := s.Key("k1")
		first[0] = 'X'
		second, _ := s.Key("k1")
		if second[0] == 'X' {
			t.Error("mutating a returned key leaked into the store")
		}
	})

	t.Run("EmptyIDRejected", func(t *testing.T) {
		s := NewMemoryKeyStore()
		if err := s.RegisterKey("", []byte("key")); err == nil {
			t.Fatal("expected error for empty key id")
		}
	})
}
