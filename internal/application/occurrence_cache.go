package application

import (
	"strings"
	"sync"
	"time"
)

// OccurrenceCache stores recently assembled agendas to avoid repeated
// expansion for identical queries while meetings remain unchanged.
type OccurrenceCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]occurrenceCacheEntry
}

type occurrenceCacheEntry struct {
	agenda    Agenda
	expiresAt time.Time
}

// NewOccurrenceCache constructs a cache with the given entry lifetime and
// size bound. Non-positive arguments fall back to defaults.
func NewOccurrenceCache(ttl time.Duration, maxEntries int, now func() time.Time) *OccurrenceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &OccurrenceCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]occurrenceCacheEntry),
	}
}

// Get returns a cached agenda when present and unexpired.
func (c *OccurrenceCache) Get(key string) (Agenda, bool) {
	if c == nil {
		return Agenda{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Agenda{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return Agenda{}, false
	}
	return cloneAgenda(entry.agenda), true
}

// Store records an agenda under the key, evicting stale entries first.
func (c *OccurrenceCache) Store(key string, agenda Agenda) {
	if c == nil {
		return
	}
	cloned := cloneAgenda(agenda)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = occurrenceCacheEntry{agenda: cloned, expiresAt: expiry}
}

// Invalidate discards every cached agenda.
func (c *OccurrenceCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]occurrenceCacheEntry)
	c.mu.Unlock()
}

func (c *OccurrenceCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *OccurrenceCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneAgenda(agenda Agenda) Agenda {
	out := Agenda{}
	if len(agenda.Occurrences) > 0 {
		out.Occurrences = make([]Occurrence, len(agenda.Occurrences))
		copy(out.Occurrences, agenda.Occurrences)
	}
	if len(agenda.Degraded) > 0 {
		out.Degraded = make([]DegradedWarning, len(agenda.Degraded))
		copy(out.Degraded, agenda.Degraded)
	}
	return out
}

func buildAgendaCacheKey(params AgendaParams, windowStart, windowEnd time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(params.Principal.UserID)
	builder.WriteString("|")
	builder.WriteString(string(params.Principal.Role))
	builder.WriteString("|")
	builder.WriteString(params.StudentID)
	builder.WriteString("|")
	builder.WriteString(windowStart.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(windowEnd.UTC().Format(time.RFC3339Nano))
	return builder.String()
}
