// Package intent persists the action an anonymous visitor tried before logging
// in, so it can be resumed exactly once after the login round trip.
package intent

import (
	"errors"
	"time"
)

const (
	DefaultTTL = 15 * time.Minute
	keyPrefix  = "pending_intent:"
)

var (
	ErrNotFound  = errors.New("no pending intent")
	ErrExpired   = errors.New("pending intent expired")
	ErrNoSession = errors.New("missing session key")
)

// ResumableIntent is stored as {"slug": ..., "timestamp": <unix ms>}.
type ResumableIntent struct {
	Slug      string `json:"slug"`
	Timestamp int64  `json:"timestamp"`
	ReturnTo  string `json:"return_to,omitempty"`
	OfferID   string `json:"offer_id,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

func New(slug, returnTo string, now time.Time) ResumableIntent {
	return ResumableIntent{Slug: slug, ReturnTo: returnTo, Timestamp: now.UnixMilli()}
}

func (i ResumableIntent) CreatedAt() time.Time {
	return time.UnixMilli(i.Timestamp)
}

// Expired reports whether the intent is older than ttl at now.
func (i ResumableIntent) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(i.CreatedAt()) > ttl
}

// Key is the storage key for a browser session.
func Key(sessionKey string) string {
	return keyPrefix + sessionKey
}
