package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New[string](time.Minute)

	c.Set("key", "value")

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("Expected hit, got miss")
	}
	if got != "value" {
		t.Errorf("Expected value, got %q", got)
	}
}

func TestMissOnUnknownKey(t *testing.T) {
	c := New[int](time.Minute)

	if _, ok := c.Get("nope"); ok {
		t.Error("Expected miss for unknown key")
	}
}

func TestLazyExpiry(t *testing.T) {
	c := New[string](30 * time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("key", "value")

	// Still fresh just before the TTL.
	current = current.Add(29 * time.Minute)
	if _, ok := c.Get("key"); !ok {
		t.Fatal("Entry expired before TTL")
	}

	// Expired entries are evicted on access.
	current = current.Add(2 * time.Minute)
	if _, ok := c.Get("key"); ok {
		t.Fatal("Expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be evicted, %d entries remain", c.Len())
	}
}

func TestSetRefreshesTimestamp(t *testing.T) {
	c := New[string](10 * time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("key", "old")
	current = current.Add(9 * time.Minute)
	c.Set("key", "new")

	current = current.Add(5 * time.Minute)
	got, ok := c.Get("key")
	if !ok {
		t.Fatal("Expected refreshed entry to survive")
	}
	if got != "new" {
		t.Errorf("Expected new, got %q", got)
	}
}

func TestClear(t *testing.T) {
	c := New[int](time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d entries", c.Len())
	}
}
