package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	expires time.Time
}

// Memory is a process-local Cache with the same expiry semantics as
// RedisCache. It backs local runs without Redis and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry), now: time.Now}
}

func (m *Memory) load(key string) ([]byte, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return e.data, true
}

func (m *Memory) store(key string, data []byte, expiration time.Duration) {
	e := memEntry{data: data}
	if expiration > 0 {
		e.expires = m.now().Add(expiration)
	}
	m.entries[key] = e
}

func (m *Memory) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	data, ok := m.load(key)
	m.mu.Unlock()
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *Memory) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.store(key, data, expiration)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.load(key); ok {
		return false, nil
	}
	m.store(key, []byte(value), expiration)
	return true, nil
}

func (m *Memory) GetString(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.load(key)
	if !ok {
		return "", ErrMiss
	}
	return string(data), nil
}

func (m *Memory) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	e, ok := m.entries[key]
	if data, live := m.load(key); live {
		if err := json.Unmarshal(data, &count); err != nil {
			return 0, err
		}
	} else {
		ok = false
	}
	count++

	data, _ := json.Marshal(count)
	if ok {
		m.entries[key] = memEntry{data: data, expires: e.expires}
	} else {
		m.store(key, data, window)
	}
	return count, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
