/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"strings"
	"sync"
	"time"
)

type identityEntry struct {
	accountID string // "" means looked up, not found
	storedAt  time.Time
}

// IdentityCache maps lowercased emails to Jira account ids with a TTL.
// Negative lookups are cached like positive ones. Writes are last-write-wins;
// concurrent resolutions for the same email are not deduplicated (lookups are
// idempotent, the extra call is harmless).
type IdentityCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]identityEntry
}

func NewIdentityCache(ttl time.Duration) *IdentityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &IdentityCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]identityEntry),
	}
}

func (c *IdentityCache) get(email string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[email]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return "", false
	}
	return e.accountID, true
}

func (c *IdentityCache) put(email, accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[email] = identityEntry{accountID: accountID, storedAt: c.now()}
}

// Sweep drops expired entries and returns how many were removed. Stale entries
// are also simply ignored by get, so sweeping is housekeeping, not correctness.
func (c *IdentityCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for email, e := range c.entries {
		if c.now().Sub(e.storedAt) >= c.ttl {
			delete(c.entries, email)
			n++
		}
	}
	return n
}

// ResolveAccountID maps an email to the tracker's account id, consulting the
// cache first. An empty result means no matching account; the caller falls
// back to currentUser() mode. Lookup errors propagate unchanged and are not
// cached.
func (s *Service) ResolveAccountID(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}
	if id, ok := s.ids.get(email); ok {
		return id, nil
	}
	users, err := s.jira.SearchUsers(ctx, email, 2)
	if err != nil {
		return "", err
	}
	id := ""
	if len(users) > 0 {
		id = users[0].AccountID
	}
	s.ids.put(email, id)
	return id, nil
}
