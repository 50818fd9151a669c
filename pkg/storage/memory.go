package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in a map. It is safe for concurrent use.
//
// A store built with NewMemoryStoreWithTTL runs a cleanup goroutine that
// drops snapshots whose GeneratedAt is older than the TTL; call Stop to
// end it.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	ttl       time.Duration

	ticker  *time.Ticker
	stop    chan struct{}
	done    chan struct{}
	stopMu  sync.Mutex
	stopped bool
}

// NewMemoryStore returns a store without expiry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

// NewMemoryStoreWithTTL returns a store that expires snapshots after ttl,
// checking every cleanupInterval (one minute when not positive).
// It panics if ttl is not positive.
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	s := &MemoryStore{
		snapshots: make(map[string]Snapshot),
		ttl:       ttl,
		ticker:    time.NewTicker(cleanupInterval),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.runCleanup()
	return s
}

// Stop ends the cleanup goroutine and waits for it. It is a no-op for
// stores without TTL and on repeated calls.
func (s *MemoryStore) Stop() {
	if s.ticker == nil {
		return
	}
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.stopped {
		return
	}
	close(s.stop)
	<-s.done
	s.ticker.Stop()
	s.stopped = true
}

func (s *MemoryStore) runCleanup() {
	defer close(s.done)
	for {
		select {
		case <-s.ticker.C:
			s.expire(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) expire(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for series, snap := range s.snapshots {
		if now.Sub(snap.GeneratedAt) > s.ttl {
			delete(s.snapshots, series)
		}
	}
}

// Put replaces the snapshot of snapshot.Series.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if err := ValidateSeriesName(snapshot.Series); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Series] = snapshot
	return nil
}

// GetLatest returns the snapshot of series, if any.
func (s *MemoryStore) GetLatest(ctx context.Context, series string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[series]
	return snap, ok, nil
}

// Len is the number of stored snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Delete removes the snapshot of series and reports whether one existed.
func (s *MemoryStore) Delete(series string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.snapshots[series]
	delete(s.snapshots, series)
	return ok
}
