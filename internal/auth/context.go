package auth

import "sync"

// Context tracks whether the caller is signed in and derives the
// Authorization value handed to the API client. It implements
// apiclient.Credentials.
type Context struct {
	mu            sync.RWMutex
	store         TokenStore
	authenticated bool
	header        string
}

// NewContext derives the initial state from token presence in store.
func NewContext(store TokenStore) *Context {
	c := &Context{store: store}
	c.mu.Lock()
	c.authenticated = store.Token() != ""
	c.refreshLocked()
	c.mu.Unlock()
	return c
}

// Store returns the backing token store.
func (c *Context) Store() TokenStore {
	return c.store
}

// IsAuthenticated reports the current flag.
func (c *Context) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// Login marks the context authenticated. The caller persists the token in
// the store beforehand.
func (c *Context) Login() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = true
	c.refreshLocked()
}

// Logout erases the persisted token and marks the context unauthenticated.
func (c *Context) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.ClearToken()
	c.authenticated = false
	c.refreshLocked()
}

// Authorization returns "Bearer <token>" or "" when no token is stored.
func (c *Context) Authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.header
}

func (c *Context) refreshLocked() {
	if token := c.store.Token(); token != "" {
		c.header = "Bearer " + token
		return
	}
	c.header = ""
}
