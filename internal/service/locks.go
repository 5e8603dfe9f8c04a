package service

import (
	"sort"
	"sync"
)

// lockTable 按库存 ID 懒创建的互斥锁表
type lockTable struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int]*sync.Mutex)}
}

func (t *lockTable) get(id int) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// lockAll 按 ID 升序加锁（去重），返回逆序解锁函数
func (t *lockTable) lockAll(ids []int) func() {
	unique := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Ints(unique)

	held := make([]*sync.Mutex, 0, len(unique))
	for _, id := range unique {
		l := t.get(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
