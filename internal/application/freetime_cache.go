package application

import (
	"strings"
	"sync"
	"time"

	"github.com/example/smart-scheduler/internal/interval"
)

// FreeTimeCache stores recently computed free-interval sets to avoid repeated
// availability expansion for identical slot searches while busy sets remain
// unchanged. Confirmation always re-validates against the authoritative store,
// so a stale entry can only produce a rejected candidate, never a double
// booking.
type FreeTimeCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]freeTimeEntry
}

type freeTimeEntry struct {
	participantID string
	intervals     []interval.Interval
	expiresAt     time.Time
}

func NewFreeTimeCache(ttl time.Duration, maxEntries int, now func() time.Time) *FreeTimeCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &FreeTimeCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]freeTimeEntry),
	}
}

func (c *FreeTimeCache) Get(key string) ([]interval.Interval, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneIntervals(entry.intervals), true
}

func (c *FreeTimeCache) Store(key, participantID string, intervals []interval.Interval) {
	if c == nil {
		return
	}
	cloned := cloneIntervals(intervals)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = freeTimeEntry{participantID: participantID, intervals: cloned, expiresAt: expiry}
}

// Invalidate drops every cached set belonging to the given participants.
func (c *FreeTimeCache) Invalidate(participantIDs ...string) {
	if c == nil || len(participantIDs) == 0 {
		return
	}
	targets := make(map[string]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		targets[id] = struct{}{}
	}

	c.mu.Lock()
	for key, entry := range c.entries {
		if _, ok := targets[entry.participantID]; ok {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *FreeTimeCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *FreeTimeCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneIntervals(intervals []interval.Interval) []interval.Interval {
	if len(intervals) == 0 {
		return nil
	}
	out := make([]interval.Interval, len(intervals))
	copy(out, intervals)
	return out
}

func freeTimeCacheKey(participantID string, rangeStart, rangeEnd time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(participantID)
	builder.WriteString("|")
	builder.WriteString(rangeStart.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(rangeEnd.UTC().Format(time.RFC3339Nano))
	return builder.String()
}
