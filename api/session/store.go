package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is the fixed session lifetime. Expiry is measured from
// issuance and is not extended by use.
const DefaultTTL = 30 * 24 * time.Hour

// tokenBytes of entropy per token; tokens are hex-encoded, so every token
// is exactly 2*tokenBytes characters long.
const tokenBytes = 32

// Record is what the store keeps per token. The password used to open the
// session is never stored.
type Record struct {
	Token     string    `json:"-"`
	Host      string    `json:"host"`
	User      string    `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store holds active session tokens in memory. It is shared across
// requests; all access is serialized through the mutex. Sessions do not
// survive a process restart.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]Record

	now func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Issue creates a session for an authenticated identity and returns its
// opaque token.
func (s *Store) Issue(host, user string) (Record, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Record{}, fmt.Errorf("generating token: %w", err)
	}
	rec := Record{
		Token:     hex.EncodeToString(buf),
		Host:      host,
		User:      user,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.records[rec.Token] = rec
	s.mu.Unlock()
	return rec, nil
}

// Validate looks up a token. It fails closed: unknown and expired tokens
// both report false, and an expired record is removed as a side effect.
func (s *Store) Validate(token string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok {
		return Record{}, false
	}
	if !s.now().Before(rec.ExpiresAt) {
		delete(s.records, token)
		return Record{}, false
	}
	return rec, true
}

// Revoke drops a token. Revoking an unknown token is a no-op.
func (s *Store) Revoke(token string) {
	s.mu.Lock()
	delete(s.records, token)
	s.mu.Unlock()
}

// Len reports the number of stored records, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
