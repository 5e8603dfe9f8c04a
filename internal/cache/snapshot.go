package cache

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SnapshotCache 进程内 TTL 快照缓存
// TTL 内的并发读取共享同一份快照（调用方只读），并发未命中合并为一次加载
// Invalidate 后，失效前开始的加载结果不会回填缓存
type SnapshotCache[T any] struct {
	loader func() (T, error)
	ttl    time.Duration
	now    func() time.Time

	mu         sync.RWMutex
	value      T
	loaded     bool
	loadedAt   time.Time
	generation uint64

	group singleflight.Group
}

// NewSnapshotCache 创建快照缓存
func NewSnapshotCache[T any](ttl time.Duration, loader func() (T, error)) *SnapshotCache[T] {
	return &SnapshotCache[T]{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL 缓存有效期
func (c *SnapshotCache[T]) TTL() time.Duration {
	return c.ttl
}

// Get 读取缓存快照，过期或失效时重新加载
func (c *SnapshotCache[T]) Get() (T, error) {
	c.mu.RLock()
	if c.loaded && c.now().Sub(c.loadedAt) < c.ttl {
		value := c.value
		c.mu.RUnlock()
		return value, nil
	}
	generation := c.generation
	c.mu.RUnlock()

	result, err, _ := c.group.Do(strconv.FormatUint(generation, 10), func() (interface{}, error) {
		value, err := c.loader()
		if err != nil {
			return value, err
		}
		c.mu.Lock()
		if c.generation == generation {
			c.value = value
			c.loaded = true
			c.loadedAt = c.now()
		}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Invalidate 使缓存失效
func (c *SnapshotCache[T]) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.loaded = false
	var zero T
	c.value = zero
	c.mu.Unlock()
}

// Generation 当前失效代数
func (c *SnapshotCache[T]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}
