// Package cache provides interfaces and implementations for the TTL-capable
// key-value store backing ephemeral conversation state and derived caches.
package cache

import (
	"context"
	"time"
)

// TTL classes used across the memory engine. A zero TTL means the entry
// does not expire (used for freshness markers).
const (
	// TTLConversation bounds Tier-1 step conversation state.
	TTLConversation = 24 * time.Hour

	// TTLContext bounds derived short-lived context caches.
	TTLContext = 5 * time.Minute

	// TTLUserData bounds aggregated user-data caches.
	TTLUserData = 4 * time.Hour

	// TTLInsight bounds cached persona insight notes.
	TTLInsight = time.Hour
)

// Store is the key-value cache backend. Keys are namespaced by the caller
// (userID, and step for Tier-1 entries) so the store itself is tenant-blind.
type Store interface {
	// Set stores a value under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves the value for key. Returns ErrNotFound when the key
	// is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// KeysByPrefix returns all live keys with the given prefix.
	KeysByPrefix(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
