// Package token issues the id/access/refresh token triple and exposes the
// signing keys as a JWKS document.
package token

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// KeyStore provides access to JWT signing and verification keys.
type KeyStore interface {
	// SigningKey returns the current private signing key and its key ID.
	SigningKey() (*rsa.PrivateKey, string, error)

	// PublicKey returns the public key for the given key ID.
	PublicKey(kid string) (*rsa.PublicKey, error)

	// PublicKeys returns every verification key by key ID, for JWKS.
	PublicKeys() map[string]*rsa.PublicKey
}

// StaticKeyStore is a KeyStore backed by in-memory keys.
type StaticKeyStore struct {
	mu         sync.RWMutex
	privateKey *rsa.PrivateKey
	keyID      string
	publicKeys map[string]*rsa.PublicKey
}

var _ KeyStore = (*StaticKeyStore)(nil)

// NewStaticKeyStore creates a StaticKeyStore with a single key pair.
func NewStaticKeyStore(privateKey *rsa.PrivateKey, keyID string) *StaticKeyStore {
	return &StaticKeyStore{
		privateKey: privateKey,
		keyID:      keyID,
		publicKeys: map[string]*rsa.PublicKey{
			keyID: &privateKey.PublicKey,
		},
	}
}

// NewGeneratedKeyStore creates a StaticKeyStore around a freshly generated
// 2048-bit RSA key pair with a random key ID. The emulator signs with a
// per-process key; clients fetch it from the JWKS endpoint.
func NewGeneratedKeyStore() (*StaticKeyStore, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return NewStaticKeyStore(key, uuid.NewString()), nil
}

// SigningKey returns the private signing key and its key ID.
func (s *StaticKeyStore) SigningKey() (*rsa.PrivateKey, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.privateKey == nil {
		return nil, "", fmt.Errorf("no signing key available")
	}
	return s.privateKey, s.keyID, nil
}

// PublicKey returns the public key for the given key ID.
func (s *StaticKeyStore) PublicKey(kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pk, ok := s.publicKeys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key ID %q", kid)
	}
	return pk, nil
}

// PublicKeys returns every verification key by key ID.
func (s *StaticKeyStore) PublicKeys() map[string]*rsa.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*rsa.PublicKey, len(s.publicKeys))
	for kid, pk := range s.publicKeys {
		out[kid] = pk
	}
	return out
}

// AddPublicKey adds a verification key, for key rotation scenarios.
func (s *StaticKeyStore) AddPublicKey(kid string, key *rsa.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicKeys[kid] = key
}
