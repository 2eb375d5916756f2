package apiclient

import "sync"

// Tokens is the credential pair held between calls.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore persists credentials for a Client. Implementations must be safe
// for concurrent use.
type TokenStore interface {
	Load() Tokens
	Save(Tokens)
	Clear()
}

// MemoryStore keeps tokens in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

func NewMemoryStore(initial Tokens) *MemoryStore {
	return &MemoryStore{tokens: initial}
}

func (m *MemoryStore) Load() Tokens {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens
}

func (m *MemoryStore) Save(t Tokens) {
	m.mu.Lock()
	m.tokens = t
	m.mu.Unlock()
}

func (m *MemoryStore) Clear() {
	m.mu.Lock()
	m.tokens = Tokens{}
	m.mu.Unlock()
}
