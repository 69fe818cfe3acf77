// Package session maps opaque session tokens to the MongoDB connection
// strings clients supply once at connect time.
//
// The store is backed by a MongoDB collection with a TTL index when a
// session database is reachable at startup, and by an in-process map
// otherwise. Callers never see which backend is in use: expiry and
// capacity policy are enforced the same way in both modes.
package session

import (
	"errors"
	"time"
)

const (
	// DefaultTimeout is the sliding expiry window for sessions.
	DefaultTimeout = 6 * time.Hour

	// DefaultMaxSessions caps the in-memory map in fallback mode.
	// Inserting beyond the cap evicts the least recently accessed session.
	DefaultMaxSessions = 5000

	// DefaultSweepProbability is the chance that a store operation also
	// triggers a full expiry sweep. Correctness never depends on the sweep
	// firing: expired records are also rejected lazily on lookup.
	DefaultSweepProbability = 0.05
)

// ErrSessionNotFound is returned when a token is unknown or expired.
// It is a client-correctable condition: the client must reconnect.
var ErrSessionNotFound = errors.New("session not found")

// Record is one stored session.
type Record struct {
	SessionID      string    `bson:"_id"`
	URI            string    `bson:"uri"`
	CreatedAt      time.Time `bson:"created_at"`
	LastAccessedAt time.Time `bson:"last_accessed_at"`
}

// Summary describes a session for introspection. The connection string is
// deliberately absent.
type Summary struct {
	SessionID      string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresIn      time.Duration
}

// Mode is the storage mode the manager committed to at startup.
type Mode string

const (
	// ModePersistent means sessions live in a MongoDB collection.
	ModePersistent Mode = "persistent"

	// ModeFallback means sessions live in an in-process map. The manager
	// never promotes back to persistent mode; a restart is required.
	ModeFallback Mode = "fallback"
)
