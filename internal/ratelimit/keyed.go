package ratelimit

import (
	"sync"
	"time"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter in metrics (e.g. "chat").
	Name string

	Burst      float64 // Maximum tokens per key
	RefillRate float64 // Tokens refilled per second

	// CleanupPeriod controls how often idle keys are dropped.
	CleanupPeriod time.Duration

	// OnDrop is called with Name whenever a request is rejected.
	OnDrop func(name string)
	// OnActive is called after each cleanup with the number of tracked keys.
	OnActive func(name string, count int)
}

// KeyedLimiter keeps one token bucket per chat and drops buckets that have
// refilled completely.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[int64]*Limiter
	config  KeyedConfig
	stopCh  chan struct{}
	once    sync.Once
}

// NewKeyedLimiter creates the limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		entries: make(map[int64]*Limiter),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow takes a token from key's bucket. Key 0 (unknown chat) is never limited.
func (kl *KeyedLimiter) Allow(key int64) bool {
	if key == 0 {
		return true
	}
	if kl.bucket(key).Allow() {
		return true
	}
	if kl.config.OnDrop != nil {
		kl.config.OnDrop(kl.config.Name)
	}
	return false
}

func (kl *KeyedLimiter) bucket(key int64) *Limiter {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return l
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if l, ok = kl.entries[key]; ok {
		return l
	}
	l = New(kl.config.Burst, kl.config.RefillRate)
	kl.entries[key] = l
	return l
}

// Available returns the tokens left for key; Burst for unseen keys.
func (kl *KeyedLimiter) Available(key int64) float64 {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.config.Burst
	}
	return l.Available()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			count := kl.cleanup()
			if kl.config.OnActive != nil {
				kl.config.OnActive(kl.config.Name, count)
			}
		}
	}
}

func (kl *KeyedLimiter) cleanup() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	for key, l := range kl.entries {
		if l.IsFull() {
			delete(kl.entries, key)
		}
	}
	return len(kl.entries)
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stopCh) })
}
