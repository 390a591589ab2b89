// Package session holds provider login state between searches.
//
// The cache lives for the lifetime of the process only. Tokens are never written to
// disk, so a restart forces a fresh login for every (provider, username) pair.
package session

import (
	"sync"
	"time"

	"lexgate/internal/logging"
	"lexgate/internal/types"
)

// Token is the saved authentication state for one provider account.
type Token struct {
	Provider   types.Source
	Username   string
	Cookies    []types.Cookie
	CapturedAt time.Time
}

func (t Token) clone() Token {
	t.Cookies = types.CloneCookies(t.Cookies)
	return t
}

type key struct {
	provider types.Source
	username string
}

// Cache maps (provider, username) to the latest Token. Safe for concurrent use;
// concurrent writers for the same key resolve last-write-wins.
type Cache struct {
	mu     sync.RWMutex
	tokens map[key]Token
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{tokens: make(map[key]Token)}
}

// Get returns a copy of the token for the pair, if any.
func (c *Cache) Get(provider types.Source, username string) (Token, bool) {
	c.mu.RLock()
	tok, ok := c.tokens[key{provider, username}]
	c.mu.RUnlock()
	if !ok {
		return Token{}, false
	}
	return tok.clone(), true
}

// Put stores a copy of tok for the pair, replacing any previous token.
// Provider and Username on tok are overwritten with the key so they cannot disagree.
func (c *Cache) Put(provider types.Source, username string, tok Token) {
	tok = tok.clone()
	tok.Provider = provider
	tok.Username = username
	if tok.CapturedAt.IsZero() {
		tok.CapturedAt = time.Now()
	}

	c.mu.Lock()
	c.tokens[key{provider, username}] = tok
	c.mu.Unlock()

	logging.SessionDebug("stored %d cookies for %s/%s", len(tok.Cookies), provider, username)
}

// Delete drops the pair's token. Used when a restored token no longer authenticates.
func (c *Cache) Delete(provider types.Source, username string) {
	c.mu.Lock()
	delete(c.tokens, key{provider, username})
	c.mu.Unlock()
}

// Len returns the number of cached tokens.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}
