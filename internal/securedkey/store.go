// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package securedkey

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/gridlhq/flapjack/internal/ferror"
)

// Store holds every parent key for one tenant (or the whole deployment,
// for the single admin key), persisted to a JSON file.
type Store struct {
	mu        sync.RWMutex
	path      string
	keys      map[string]*Key
	adminHash []byte
}

// LoadOrCreate opens the key store at path, seeding it with a default
// search key on first run. adminKeyPlaintext is never persisted in
// plaintext; only its bcrypt hash is kept, and it can never be used to
// derive a secured key.
func LoadOrCreate(path, adminKeyPlaintext string) (*Store, error) {
	s := &Store{
		path: path,
		keys: make(map[string]*Key),
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminKeyPlaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, ferror.Newf(ferror.Internal, "hash admin key: %v", err)
	}
	s.adminHash = adminHash

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		searchKey, genErr := newKey(RoleSearch, "Default Search API Key")
		if genErr != nil {
			return nil, genErr
		}
		s.keys[searchKey.ID] = searchKey
		if err := s.saveLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, ferror.Newf(ferror.Io, "read key store: %v", err)
	}

	var list []*Key
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, ferror.Newf(ferror.Json, "parse key store: %v", err)
	}
	for _, k := range list {
		s.keys[k.ID] = k
	}
	return s, nil
}

// newKey generates a fresh random 16-byte hex key of the given role.
func newKey(role Role, description string) (*Key, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return nil, ferror.Newf(ferror.Internal, "generate key: %v", err)
	}
	secret := hex.EncodeToString(raw)

	return &Key{
		ID:          secret[:8],
		Description: description,
		Role:        role,
		Secret:      secret,
		CreatedAt:   time.Now(),
	}, nil
}

// CreateKey provisions a new parent key with the given restrictions.
func (s *Store) CreateKey(description string, restrictions Restrictions) (*Key, error) {
	key, err := newKey(RoleSearch, description)
	if err != nil {
		return nil, err
	}
	key.Restrictions = restrictions

	s.mu.Lock()
	s.keys[key.ID] = key
	err = s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return key, nil
}

// DeleteKey removes a parent key by ID. Any secured key already derived
// from it is immediately invalidated, since validation re-derives the
// HMAC against this store's surviving parents.
func (s *Store) DeleteKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; !ok {
		return ferror.Newf(ferror.TenantNotFound, "key %q not found", id)
	}
	delete(s.keys, id)
	return s.saveLocked()
}

// List returns every parent key.
func (s *Store) List() []*Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Key, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	return out
}

// findByPlaintext locates the search-role parent key whose secret equals
// candidate, for direct API-key auth. The comparison is a plain string
// equality, not a constant-time one; secured-key validation does not use
// this lookup (Validate walks List and compares HMAC digests itself).
func (s *Store) findByPlaintext(candidate string) *Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.Role == RoleSearch && k.Secret == candidate {
			return k
		}
	}
	return nil
}

// FindSearchKey looks up a search-role parent key by its raw plaintext
// value, for callers authenticating a request's API key header directly
// (as opposed to validating an HMAC-derived secured key).
func (s *Store) FindSearchKey(candidate string) (*Key, bool) {
	k := s.findByPlaintext(candidate)
	return k, k != nil
}

// ValidateAdminKey checks candidate against the store's single admin key.
func (s *Store) ValidateAdminKey(candidate string) bool {
	s.mu.RLock()
	hash := s.adminHash
	s.mu.RUnlock()
	return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
}

func (s *Store) saveLocked() error {
	list := make([]*Key, 0, len(s.keys))
	for _, k := range s.keys {
		list = append(list, k)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return ferror.Newf(ferror.Json, "marshal key store: %v", err)
	}
	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferror.Newf(ferror.Io, "create directory for %s: %v", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ferror.Newf(ferror.Io, "write temp file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferror.Newf(ferror.Io, "rename temp file: %v", err)
	}
	return nil
}
