package credits

import (
	"context"
	"sync"
)

// MemoryStore keeps accounts in process memory. Used by tests and by
// single-instance development setups.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*versionedAccount
}

type versionedAccount struct {
	acc     Account
	version uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*versionedAccount)}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (*Account, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.accounts[userID]
	if !ok {
		return nil, 0, ErrAccountNotFound
	}
	acc := entry.acc
	return &acc, entry.version, nil
}

func (s *MemoryStore) Save(_ context.Context, acc *Account, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.accounts[acc.UserID]
	if !ok {
		if version != 0 {
			return ErrVersionConflict
		}
		s.accounts[acc.UserID] = &versionedAccount{acc: *acc, version: 1}
		return nil
	}
	if entry.version != version {
		return ErrVersionConflict
	}
	entry.acc = *acc
	entry.version++
	return nil
}

// Seed installs an account directly, bypassing versioning. Test helper.
func (s *MemoryStore) Seed(acc Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.UserID] = &versionedAccount{acc: acc, version: 1}
}
