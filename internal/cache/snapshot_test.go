package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSnapshotCacheServesWithinTTL(t *testing.T) {
	var loads int32
	c := NewSnapshotCache(time.Minute, func() (int, error) {
		return int(atomic.AddInt32(&loads, 1)), nil
	})

	for i := 0; i < 3; i++ {
		got, err := c.Get()
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got != 1 {
			t.Fatalf("expected cached value 1, got %d", got)
		}
	}
	if loads != 1 {
		t.Fatalf("expected single load, got %d", loads)
	}
}

func TestSnapshotCacheExpires(t *testing.T) {
	var loads int32
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSnapshotCache(30*time.Second, func() (int, error) {
		return int(atomic.AddInt32(&loads, 1)), nil
	})
	c.now = func() time.Time { return now }

	if got, _ := c.Get(); got != 1 {
		t.Fatalf("unexpected first value %d", got)
	}
	now = now.Add(29 * time.Second)
	if got, _ := c.Get(); got != 1 {
		t.Fatalf("value should still be cached, got %d", got)
	}
	now = now.Add(2 * time.Second)
	if got, _ := c.Get(); got != 2 {
		t.Fatalf("value should be reloaded, got %d", got)
	}
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	var loads int32
	c := NewSnapshotCache(time.Minute, func() (int, error) {
		return int(atomic.AddInt32(&loads, 1)), nil
	})
	_, _ = c.Get()
	c.Invalidate()
	got, err := c.Get()
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected fresh load after invalidate, got %d", got)
	}
	if c.Generation() != 1 {
		t.Fatalf("unexpected generation %d", c.Generation())
	}
}

func TestSnapshotCacheStaleLoadDoesNotRepopulate(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32
	c := NewSnapshotCache(time.Minute, func() (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return "stale", nil
		}
		return "fresh", nil
	})

	done := make(chan string)
	go func() {
		v, _ := c.Get()
		done <- v
	}()
	<-started
	c.Invalidate()
	close(release)
	if v := <-done; v != "stale" {
		t.Fatalf("in-flight load should return its own value, got %s", v)
	}

	got, err := c.Get()
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "fresh" {
		t.Fatalf("stale load must not repopulate cache, got %s", got)
	}
}

func TestSnapshotCacheCollapsesConcurrentMisses(t *testing.T) {
	var loads int32
	gate := make(chan struct{})
	c := NewSnapshotCache(time.Minute, func() (int, error) {
		atomic.AddInt32(&loads, 1)
		<-gate
		return 42, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.Get(); err != nil || v != 42 {
				t.Errorf("unexpected result %d %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	if loads != 1 {
		t.Fatalf("expected one shared load, got %d", loads)
	}
}

func TestSnapshotCacheLoaderError(t *testing.T) {
	wantErr := errors.New("boom")
	c := NewSnapshotCache(time.Minute, func() (int, error) {
		return 0, wantErr
	})
	if _, err := c.Get(); !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}
