// Package concurrency 동시성 제어를 위한 보조 타입을 제공합니다.
package concurrency

import (
	"sync"
)

// KeyedMutex 키마다 독립적인 잠금을 제공합니다. 서로 다른 키는 서로를 막지 않습니다.
//
// 키별 잠금은 참조 수를 세어 더 이상 대기자가 없으면 맵에서 제거됩니다.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock key의 잠금을 획득하고 해제 함수를 반환합니다. 해제 함수는 여러 번 호출해도 한 번만 동작합니다.
//
//	unlock := km.Lock(path)
//	defer unlock()
func (km *KeyedMutex) Lock(key string) (unlock func()) {
	l := km.acquire(key)
	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			km.release(key, l)
		})
	}
}

// TryLock 잠금을 기다리지 않고 시도합니다. 실패하면 ok가 false이고 unlock은 nil입니다.
func (km *KeyedMutex) TryLock(key string) (unlock func(), ok bool) {
	l := km.acquire(key)
	if !l.mu.TryLock() {
		km.release(key, l)
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			km.release(key, l)
		})
	}, true
}

// Len 잠겨 있거나 대기자가 있는 키의 수
func (km *KeyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()

	return len(km.locks)
}

func (km *KeyedMutex) acquire(key string) *keyedLock {
	km.mu.Lock()
	defer km.mu.Unlock()

	l, ok := km.locks[key]
	if !ok {
		l = &keyedLock{}
		km.locks[key] = l
	}
	l.refs++
	return l
}

func (km *KeyedMutex) release(key string, l *keyedLock) {
	km.mu.Lock()
	defer km.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(km.locks, key)
	}
}
