// Package pipeline 实现了文档入库、向量清理与两库对账的流水线。
package pipeline

import "sync"

// keyedLocks 提供按键互斥，保证同一来源的入库与删除串行执行。
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock 锁住给定键，返回对应的解锁函数。
func (k *keyedLocks) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
