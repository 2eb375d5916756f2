package redis

import "strings"

const defaultKeyPrefix = "sf"

// Keyspace families. Every key the API, worker and cron processes write
// starts with "<prefix>:<family>:".
const (
	familyIdempotency = "idempotency"
	familyRateLimit   = "rate_limit"
	familyLock        = "lock"
)

// Keyspace builds namespaced keys so several deployments can share one Redis.
type Keyspace struct {
	prefix string
}

// NewKeyspace trims prefix and falls back to "sf".
func NewKeyspace(prefix string) Keyspace {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return Keyspace{prefix: prefix}
}

// Key joins the non-empty parts under the prefix.
func (k Keyspace) Key(parts ...string) string {
	prefix := k.prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

// IdempotencyKey is where a replayable response or a processed event marker lives.
func (c *Client) IdempotencyKey(scope, id string) string {
	return c.keys.Key(familyIdempotency, scope, id)
}

// RateLimitKey is the counter behind one fixed window scope.
func (c *Client) RateLimitKey(scope string) string {
	return c.keys.Key(familyRateLimit, scope)
}

// LockKey names a distributed lock.
func (c *Client) LockKey(name string) string {
	return c.keys.Key(familyLock, name)
}
