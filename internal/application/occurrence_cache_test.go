package application

import (
	"fmt"
	"testing"
	"time"
)

func TestOccurrenceCacheStoresAndReturnsCopies(t *testing.T) {
	fixed := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	current := fixed
	cache := NewOccurrenceCache(time.Minute, 4, func() time.Time { return current })

	original := Agenda{Occurrences: []Occurrence{{MeetingID: "meeting-1", Title: "Algebra II"}}}
	cache.Store("key", original)

	// Mutating the original slice should not affect the cached copy.
	original.Occurrences[0].MeetingID = "mutated"

	cached, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached.Occurrences[0].MeetingID != "meeting-1" {
		t.Fatalf("expected cached meeting id to remain unchanged, got %s", cached.Occurrences[0].MeetingID)
	}

	// Mutating the returned slice should not be visible on subsequent reads.
	cached.Occurrences[0].MeetingID = "changed"
	cachedAgain, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit on second read")
	}
	if cachedAgain.Occurrences[0].MeetingID != "meeting-1" {
		t.Fatalf("expected cache to return independent copy, got %s", cachedAgain.Occurrences[0].MeetingID)
	}
}

func TestOccurrenceCacheExpiresEntries(t *testing.T) {
	fixed := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	current := fixed
	cache := NewOccurrenceCache(time.Second, 4, func() time.Time { return current })

	cache.Store("key", Agenda{Occurrences: []Occurrence{{MeetingID: "meeting-1"}}})
	if _, ok := cache.Get("key"); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestOccurrenceCacheInvalidate(t *testing.T) {
	cache := NewOccurrenceCache(time.Minute, 4, time.Now)
	cache.Store("key", Agenda{Occurrences: []Occurrence{{MeetingID: "meeting-1"}}})
	cache.Invalidate()
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache to be empty after invalidation")
	}
}

func TestOccurrenceCacheBoundsEntries(t *testing.T) {
	cache := NewOccurrenceCache(time.Minute, 2, time.Now)
	for i := 0; i < 3; i++ {
		cache.Store(fmt.Sprintf("key-%d", i), Agenda{})
	}

	hits := 0
	for i := 0; i < 3; i++ {
		if _, ok := cache.Get(fmt.Sprintf("key-%d", i)); ok {
			hits++
		}
	}
	if hits > 2 {
		t.Fatalf("expected at most 2 retained entries, got %d", hits)
	}
}

func TestBuildAgendaCacheKey(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	base := AgendaParams{Principal: Principal{UserID: "student-1", Role: RoleStudent}}
	same := buildAgendaCacheKey(base, start, end)
	if same != buildAgendaCacheKey(base, start, end) {
		t.Fatalf("expected identical params to produce identical keys")
	}

	other := AgendaParams{Principal: Principal{UserID: "student-2", Role: RoleStudent}}
	if buildAgendaCacheKey(other, start, end) == same {
		t.Fatalf("expected different principals to produce different keys")
	}

	if buildAgendaCacheKey(base, start, end.AddDate(0, 0, 1)) == same {
		t.Fatalf("expected different windows to produce different keys")
	}
}
