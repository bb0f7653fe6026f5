// Package cache holds short-lived in-process caches. Nothing here is a source
// of truth; every entry can be rebuilt from storage.
package cache

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans the registered caches.
type Janitor struct {
	caches   []Cleaner
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{
		caches: caches,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the cleanup loop until Stop is called.
func (j *Janitor) Start(interval time.Duration) {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, c := range j.caches {
					c.CleanExpired()
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup loop and waits for it to exit. It must follow Start.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
		<-j.done
	})
}

// CredentialCache remembers successful logins so repeated requests skip the
// password hash. Keys are HMACs under a per-process secret; plaintext
// passwords are never stored.
type CredentialCache[T any] struct {
	*LRUCache[T]
	secret []byte
}

func NewCredentialCache[T any](maxSize int, ttl time.Duration) *CredentialCache[T] {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return &CredentialCache[T]{LRUCache: NewLRUCache[T](maxSize, ttl), secret: secret}
}

// Key derives the cache key for a username and password pair.
func (c *CredentialCache[T]) Key(username, password string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(username))
	mac.Write([]byte{0})
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}
