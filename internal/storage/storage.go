// Package storage holds the key/value stores that stand in for what a
// browser persists on the client: cookies scoped to a request and a
// profile-wide store shared by every tab of one browser.
package storage

import "sync"

type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Memory is a concurrency-safe in-process Storage.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

func (m *Memory) Remove(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

// Profiles hands out one shared Memory per browser profile id.
type Profiles struct {
	mu   sync.Mutex
	byID map[string]*Memory
}

func NewProfiles() *Profiles {
	return &Profiles{byID: make(map[string]*Memory)}
}

func (p *Profiles) For(profileID string) *Memory {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.byID[profileID]
	if !ok {
		m = NewMemory()
		p.byID[profileID] = m
	}
	return m
}
