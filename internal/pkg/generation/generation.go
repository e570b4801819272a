// Package generation tags asynchronous work with the selection context it was
// started for, so results that arrive after the context moved on can be dropped.
package generation

import "sync"

// Token captures a context key and the generation current when work began.
type Token struct {
	Key string
	N   uint64
}

// Counter holds the current generation per key. Generations are drawn from
// one sequence shared by all keys, so a number is never issued twice even
// after its key was forgotten.
type Counter struct {
	mu  sync.Mutex
	seq uint64
	gen map[string]uint64
}

// New returns an empty Counter.
func New() *Counter {
	return &Counter{gen: make(map[string]uint64)}
}

// Advance moves key to a new generation and returns its token. Any token
// issued earlier for key becomes invalid.
func (c *Counter) Advance(key string) Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.gen[key] = c.seq
	return Token{Key: key, N: c.seq}
}

// Current returns the token for key's present generation.
func (c *Counter) Current(key string) Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Token{Key: key, N: c.gen[key]}
}

// Valid reports whether t still matches its key's generation.
func (c *Counter) Valid(t Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[t.Key] == t.N
}

// Forget drops key, e.g. when an itinerary is deleted. Tokens issued by
// Advance for key stay invalid.
func (c *Counter) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.gen, key)
}
