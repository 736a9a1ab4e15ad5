package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	verifiedTokenPrefix = "verified_token:"
	// DefaultVerifiedTTL caps how long a verification result is reused.
	DefaultVerifiedTTL = 5 * time.Minute
)

// CachedVerifier remembers successful verifications in Redis, keyed by the
// token's SHA-256, until the token expires or maxTTL passes. Cache failures
// fall through to the wrapped verifier.
type CachedVerifier struct {
	next   TokenVerifier
	client *redis.Client
	maxTTL time.Duration
	now    func() time.Time
}

func NewCachedVerifier(next TokenVerifier, client *redis.Client, maxTTL time.Duration) *CachedVerifier {
	if maxTTL <= 0 {
		maxTTL = DefaultVerifiedTTL
	}
	return &CachedVerifier{next: next, client: client, maxTTL: maxTTL, now: time.Now}
}

func tokenKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return verifiedTokenPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	key := tokenKey(rawToken)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached Claims
		if json.Unmarshal(raw, &cached) == nil && !expired(cached, c.now()) {
			return cached, nil
		}
	}

	claims, err := c.next.Verify(ctx, rawToken)
	if err != nil {
		return Claims{}, err
	}

	ttl := c.maxTTL
	if !claims.ExpiresAt.IsZero() {
		if left := claims.ExpiresAt.Sub(c.now()); left < ttl {
			ttl = left
		}
	}
	if ttl > 0 {
		if payload, err := json.Marshal(claims); err == nil {
			_ = c.client.Set(ctx, key, payload, ttl).Err()
		}
	}
	return claims, nil
}
