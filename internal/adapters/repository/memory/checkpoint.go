// Package memory provides in-process implementations of the storage ports
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avatarflowx/avatarflowx/internal/core/checkpoint"
	"github.com/avatarflowx/avatarflowx/pkg/serialization"
)

// CheckpointSaver implements checkpoint.Saver with thread-safe in-memory storage
// PRINCIPLES:
// - KISS: Simple in-memory map with proper concurrency
// - SRP: Single responsibility for in-memory checkpoint storage
// - DIP: Implements checkpoint.Saver interface
type CheckpointSaver struct {
	mu      sync.RWMutex
	entries map[string]*checkpointEntry

	ttl         time.Duration
	maxBytes    int64
	currentSize int64

	serializer *serialization.Serializer
	now        func() time.Time

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// Config holds configuration for CheckpointSaver
type Config struct {
	TTL             time.Duration             // Zero keeps checkpoints until deleted
	MaxMemoryMB     int64                     // Budget for encoded snapshots
	CleanupInterval time.Duration             // Sweep interval when TTL is set
	Serializer      *serialization.Serializer // Custom serializer (optional)
}

// checkpointEntry holds the checkpoint header with its encoded snapshot
type checkpointEntry struct {
	header     checkpoint.Checkpoint
	data       []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// NewCheckpointSaver creates a new in-memory checkpoint saver
func NewCheckpointSaver(cfg Config) *CheckpointSaver {
	if cfg.MaxMemoryMB == 0 {
		cfg.MaxMemoryMB = 256
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.Serializer == nil {
		cfg.Serializer = serialization.DefaultSerializer()
	}

	s := &CheckpointSaver{
		entries:     make(map[string]*checkpointEntry),
		ttl:         cfg.TTL,
		maxBytes:    cfg.MaxMemoryMB * 1024 * 1024,
		serializer:  cfg.Serializer,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	if cfg.TTL > 0 {
		go s.cleanupLoop(cfg.CleanupInterval)
	}

	return s
}

// DefaultCheckpointSaver creates a CheckpointSaver with default configuration
func DefaultCheckpointSaver() *CheckpointSaver {
	return NewCheckpointSaver(Config{})
}

// Save stores a checkpoint in memory. The snapshot is encoded so later
// mutation of the caller's graph does not leak into the store.
func (s *CheckpointSaver) Save(_ context.Context, cp *checkpoint.Checkpoint) error {
	if cp == nil {
		return checkpoint.ErrInvalidCheckpointID
	}
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("checkpoint validation failed: %w", err)
	}

	data, err := s.serializer.EncodeSnapshot(cp.Snapshot)
	if err != nil {
		return fmt.Errorf("checkpoint serialization failed: %w", err)
	}

	now := s.now()
	entry := &checkpointEntry{
		header:     cp.Summary(),
		data:       data,
		accessedAt: now,
	}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[cp.ID]; ok {
		s.currentSize -= int64(len(old.data))
		delete(s.entries, cp.ID)
	}

	size := int64(len(data))
	if s.currentSize+size > s.maxBytes {
		s.evictLRU(s.currentSize + size - s.maxBytes)
		if s.currentSize+size > s.maxBytes {
			return fmt.Errorf("memory limit exceeded: current=%dB, max=%dB", s.currentSize, s.maxBytes)
		}
	}

	s.entries[cp.ID] = entry
	s.currentSize += size
	return nil
}

// Load retrieves a checkpoint from memory
func (s *CheckpointSaver) Load(_ context.Context, id string) (*checkpoint.Checkpoint, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidCheckpointID
	}

	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && s.expired(entry) {
		s.remove(id)
		ok = false
	}
	if ok {
		entry.accessedAt = s.now()
	}
	s.mu.Unlock()

	if !ok {
		return nil, checkpoint.ErrCheckpointNotFound
	}
	return s.materialize(entry)
}

// List returns checkpoints matching the filter, newest first
func (s *CheckpointSaver) List(_ context.Context, filter checkpoint.Filter) ([]*checkpoint.Checkpoint, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}

	s.mu.RLock()
	matched := make([]*checkpointEntry, 0)
	for _, entry := range s.entries {
		if s.expired(entry) || !filter.Matches(&entry.header) {
			continue
		}
		matched = append(matched, entry)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].header, matched[j].header
		if a.Timestamp.Equal(b.Timestamp) {
			return a.ID < b.ID
		}
		return a.Timestamp.After(b.Timestamp)
	})

	var results []*checkpoint.Checkpoint
	for _, entry := range matched {
		cp, err := s.materialize(entry)
		if err != nil {
			return nil, err
		}
		results = append(results, cp)
	}
	return filter.Page(results), nil
}

// Delete removes a checkpoint from memory
func (s *CheckpointSaver) Delete(_ context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidCheckpointID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return checkpoint.ErrCheckpointNotFound
	}
	s.remove(id)
	return nil
}

// MemoryStats reports the saver's footprint
type MemoryStats struct {
	Count     int   `json:"count"`
	SizeBytes int64 `json:"size_bytes"`
	MaxBytes  int64 `json:"max_bytes"`
}

// Stats returns memory usage statistics
func (s *CheckpointSaver) Stats() MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MemoryStats{Count: len(s.entries), SizeBytes: s.currentSize, MaxBytes: s.maxBytes}
}

// Close stops the cleanup goroutine
func (s *CheckpointSaver) Close() error {
	s.cleanupOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

func (s *CheckpointSaver) materialize(entry *checkpointEntry) (*checkpoint.Checkpoint, error) {
	snap, err := s.serializer.DecodeSnapshot(entry.data)
	if err != nil {
		return nil, fmt.Errorf("checkpoint deserialization failed: %w", err)
	}
	cp := entry.header.Summary()
	cp.Snapshot = snap
	return &cp, nil
}

func (s *CheckpointSaver) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for id, entry := range s.entries {
				if s.expired(entry) {
					s.remove(id)
				}
			}
			s.mu.Unlock()
		case <-s.stopCleanup:
			return
		}
	}
}

// expired must be called with mu held
func (s *CheckpointSaver) expired(entry *checkpointEntry) bool {
	return !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt)
}

// remove must be called with mu held
func (s *CheckpointSaver) remove(id string) {
	if entry, ok := s.entries[id]; ok {
		s.currentSize -= int64(len(entry.data))
		delete(s.entries, id)
	}
}

// evictLRU drops least recently used entries until target bytes are freed.
// Must be called with mu held.
func (s *CheckpointSaver) evictLRU(target int64) {
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.entries[ids[i]].accessedAt.Before(s.entries[ids[j]].accessedAt)
	})

	var freed int64
	for _, id := range ids {
		if freed >= target {
			return
		}
		freed += int64(len(s.entries[id].data))
		s.remove(id)
	}
}
