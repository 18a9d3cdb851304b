// Package client implements the outbound request pipeline: it attaches the
// current access token to every call, transparently refreshes on expiry or a
// 401, retries the original request at most once, and reports every
// security-relevant event to an audit reporter.
package client

import "sync"

// Tokens is the client-held credential pair.
type Tokens struct {
	Access  string
	Refresh string
}

// CredentialStore holds the session tokens for the pipeline. Populated on
// login, read on every outbound call, cleared on forced logout.
type CredentialStore interface {
	Tokens() Tokens
	SetTokens(tokens Tokens)
	SetAccessToken(access string)
	Clear()
}

// MemoryCredentialStore is a concurrency-safe in-process CredentialStore.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *MemoryCredentialStore) SetTokens(tokens Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
}

func (s *MemoryCredentialStore) SetAccessToken(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.Access = access
}

func (s *MemoryCredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
}
