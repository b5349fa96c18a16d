package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted as least recently used")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}

	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("overwrite failed, a = %d", v)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be deleted")
	}
}

func TestLRUExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clk.now)
	c.Set("x", "1")
	c.Set("y", "2")

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("y", "3")
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get("x"); ok {
		t.Fatal("x should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("expected nothing else expired, removed %d", n)
	}
	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 || c.Size() != 0 {
		t.Fatalf("removed %d, size %d", n, c.Size())
	}
}

func TestManagerClean(t *testing.T) {
	clk := &clock{t: time.Now()}
	a := NewLRUCache[int](10, time.Second).WithClock(clk.now)
	b := NewLRUCache[int](10, time.Second).WithClock(clk.now)
	a.Set("1", 1)
	b.Set("1", 1)
	b.Set("2", 2)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)
	clk.t = clk.t.Add(2 * time.Second)
	if n := m.Clean(); n != 3 {
		t.Fatalf("cleaned %d, want 3", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
}
