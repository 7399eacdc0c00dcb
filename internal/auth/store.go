package auth

import (
	"sync"

	"github.com/inventra/inventra/internal/shared"
)

// TokenKey is the fixed storage key of the bearer token.
const TokenKey = "jwtToken"

// TokenStore is where the bearer token lives between requests.
type TokenStore interface {
	Token() string
	SetToken(token string)
	ClearToken()
}

// SessionStore keeps the token in the server-side session.
type SessionStore struct {
	sess *shared.Session
}

// NewSessionStore wraps sess. A nil session behaves as an empty store.
func NewSessionStore(sess *shared.Session) *SessionStore {
	return &SessionStore{sess: sess}
}

func (s *SessionStore) Token() string {
	if s.sess == nil {
		return ""
	}
	return s.sess.Get(TokenKey)
}

func (s *SessionStore) SetToken(token string) {
	if s.sess != nil {
		s.sess.Set(TokenKey, token)
	}
}

func (s *SessionStore) ClearToken() {
	if s.sess != nil {
		s.sess.Delete(TokenKey)
	}
}

// MemoryStore is an in-process TokenStore.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *MemoryStore) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *MemoryStore) ClearToken() {
	m.SetToken("")
}
