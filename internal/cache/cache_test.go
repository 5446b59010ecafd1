package cache

import (
	"testing"
	"time"
)

func TestTTLExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTL[string](nil)
	c.now = func() time.Time { return now }

	c.Put("2707", "order", time.Minute)
	if v, ok := c.Get("2707"); !ok || v != "order" {
		t.Fatalf("got %q ok=%v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("2707"); ok {
		t.Fatal("expected expired entry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted, len=%d", c.Len())
	}
}

func TestTTLZeroDoesNotStore(t *testing.T) {
	c := NewTTL[int](nil)
	c.Put("a", 1, 0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero ttl stored a value")
	}
}

func TestTTLClonesValues(t *testing.T) {
	c := NewTTL[[]int](func(v []int) []int { return append([]int(nil), v...) })
	src := []int{1, 2}
	c.Put("k", src, time.Minute)
	src[0] = 99

	got, _ := c.Get("k")
	if got[0] != 1 {
		t.Fatalf("cache shares caller slice: %v", got)
	}
	got[1] = 42
	again, _ := c.Get("k")
	if again[1] != 2 {
		t.Fatalf("cache shares returned slice: %v", again)
	}
}

func TestPurge(t *testing.T) {
	now := time.Now()
	c := NewTTL[int](nil)
	c.now = func() time.Time { return now }
	c.Put("a", 1, time.Second)
	c.Put("b", 2, time.Hour)
	now = now.Add(time.Minute)
	if n := c.Purge(); n != 1 {
		t.Fatalf("purged %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestNoop(t *testing.T) {
	var s Store[int] = Noop[int]{}
	s.Put("a", 1, time.Hour)
	if _, ok := s.Get("a"); ok {
		t.Fatal("noop returned a value")
	}
}
