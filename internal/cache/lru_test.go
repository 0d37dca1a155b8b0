package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock, *[]string) {
	clk := &clock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	var evictedKeys []string
	c := NewLRUCache[string](size, ttl).OnEvict(func(key, _ string) {
		evictedKeys = append(evictedKeys, key)
	})
	c.now = clk.now
	return c, clk, &evictedKeys
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _, evicted := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if len(*evicted) != 1 || (*evicted)[0] != "b" {
		t.Fatalf("evicted = %v", *evicted)
	}
}

func TestLRUSlidingTTL(t *testing.T) {
	c, clk, evicted := newTestCache(10, time.Minute)
	c.Set("a", "1")

	clk.t = clk.t.Add(50 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should still be live")
	}
	clk.t = clk.t.Add(50 * time.Second)
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("read should have extended the lifetime, cleaned %d", n)
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 1 || len(*evicted) != 1 {
		t.Fatalf("cleaned %d, evicted %v", n, *evicted)
	}
}

func TestLRUOverwriteDoesNotRelease(t *testing.T) {
	c, _, evicted := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("a", "2")
	if len(*evicted) != 0 {
		t.Fatalf("evicted = %v", *evicted)
	}
	if v, _ := c.Get("a"); v != "2" {
		t.Fatalf("value = %q", v)
	}
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c, _, evicted := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Delete("a")
	c.Purge()
	if c.Size() != 0 || len(*evicted) != 3 {
		t.Fatalf("size=%d evicted=%v", c.Size(), *evicted)
	}
}

func TestManagerSweep(t *testing.T) {
	c, clk, _ := newTestCache(10, time.Minute)
	c.Set("a", "1")
	m := NewManager()
	m.Register(c)
	clk.t = clk.t.Add(time.Hour)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("swept %d", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
