package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFeedKey(t *testing.T) {
	key1a := FeedKey("https://example.com/feed.xml")
	key1b := FeedKey("https://example.com/feed.xml")
	key2 := FeedKey("https://different.com/feed.xml")

	if key1a != key1b {
		t.Errorf("Expected same key for same URL, got %s != %s", key1a, key1b)
	}
	if key1a == key2 {
		t.Errorf("Expected different keys for different URLs, but got same: %s", key1a)
	}
	if !strings.HasPrefix(key1a, "newsdesk:feed:") {
		t.Errorf("Expected key to start with newsdesk:feed:, got %s", key1a)
	}
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Error("Expected cache miss for unknown key")
	}

	if err := m.Set(ctx, "feed", []byte("<rss/>"), time.Minute); err != nil {
		t.Fatal(err)
	}

	value, ok, err := m.Get(ctx, "feed")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if string(value) != "<rss/>" {
		t.Errorf("Expected '<rss/>', got '%s'", value)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "feed", []byte("data"), 30*time.Second); err != nil {
		t.Fatal(err)
	}

	now = now.Add(29 * time.Second)
	if _, ok, _ := m.Get(ctx, "feed"); !ok {
		t.Error("Expected entry to be alive before ttl")
	}

	now = now.Add(time.Second)
	if _, ok, _ := m.Get(ctx, "feed"); ok {
		t.Error("Expected entry to expire at ttl")
	}
	if m.Len() != 0 {
		t.Errorf("Expected expired entry to be evicted, got %d entries", m.Len())
	}
}

func TestMemoryZeroTTLDisablesCaching(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "feed", []byte("data"), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.Get(ctx, "feed"); ok {
		t.Error("Expected no caching with zero ttl")
	}
}
