package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DiskConfig sizes a DiskStore.
type DiskConfig struct {
	Root       string
	MaxEntries int
	MaxBytes   int64
	TTL        time.Duration
}

type diskEntry struct {
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	ExpiresAt  time.Time `json:"expires_at"`
	AccessedAt time.Time `json:"accessed_at"`
}

type diskIndex struct {
	Entries map[string]diskEntry `json:"entries"`
}

// DiskStore persists oracle responses on disk and keeps an index for
// TTL and LRU eviction, so cached generations survive a restart.
type DiskStore struct {
	mu sync.Mutex

	dataDir   string
	indexPath string

	maxEntries int
	maxBytes   int64
	ttl        time.Duration

	totalBytes int64
	entries    map[string]diskEntry
}

func NewDiskStore(cfg DiskConfig) (*DiskStore, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("cache root is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}

	s := &DiskStore{
		dataDir:    filepath.Join(root, "data"),
		indexPath:  filepath.Join(root, "index.json"),
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		ttl:        cfg.TTL,
		entries:    map[string]diskEntry{},
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	if err := s.evictLocked(time.Now()); err != nil {
		return nil, err
	}
	return s, s.persistIndexLocked()
}

func (s *DiskStore) Get(key string) ([]byte, bool) {
	key = strings.TrimSpace(key)
	if s == nil || key == "" {
		return nil, false
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(ent.ExpiresAt) {
		s.removeLocked(key, ent)
		_ = s.persistIndexLocked()
		return nil, false
	}
	raw, err := os.ReadFile(filepath.Join(s.dataDir, ent.File))
	if err != nil {
		s.removeLocked(key, ent)
		_ = s.persistIndexLocked()
		return nil, false
	}
	ent.AccessedAt = now
	s.entries[key] = ent
	_ = s.persistIndexLocked()
	return raw, true
}

func (s *DiskStore) Put(key string, value []byte) error {
	key = strings.TrimSpace(key)
	if s == nil || key == "" {
		return fmt.Errorf("key is required")
	}
	now := time.Now()
	file := hashedName(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.totalBytes -= old.Size
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, file), value, 0o644); err != nil {
		return err
	}
	s.entries[key] = diskEntry{
		File:       file,
		Size:       int64(len(value)),
		ExpiresAt:  now.Add(s.ttl),
		AccessedAt: now,
	}
	s.totalBytes += int64(len(value))

	if err := s.evictLocked(now); err != nil {
		return err
	}
	return s.persistIndexLocked()
}

func (s *DiskStore) loadIndex() error {
	raw, err := os.ReadFile(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var idx diskIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		// A corrupt index is not worth failing over; start fresh.
		s.entries = map[string]diskEntry{}
		s.totalBytes = 0
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = map[string]diskEntry{}
	}
	s.entries = idx.Entries
	s.totalBytes = 0
	for _, ent := range s.entries {
		s.totalBytes += ent.Size
	}
	return nil
}

func (s *DiskStore) persistIndexLocked() error {
	raw, err := json.Marshal(diskIndex{Entries: s.entries})
	if err != nil {
		return err
	}
	return os.WriteFile(s.indexPath, raw, 0o644)
}

// evictLocked drops expired entries first, then least-recently-used
// entries until the store fits its entry and byte budgets.
func (s *DiskStore) evictLocked(now time.Time) error {
	for key, ent := range s.entries {
		if now.After(ent.ExpiresAt) {
			s.removeLocked(key, ent)
		}
	}
	if len(s.entries) <= s.maxEntries && (s.maxBytes <= 0 || s.totalBytes <= s.maxBytes) {
		return nil
	}
	type keyed struct {
		key string
		ent diskEntry
	}
	all := make([]keyed, 0, len(s.entries))
	for k, e := range s.entries {
		all = append(all, keyed{k, e})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ent.AccessedAt.Before(all[j].ent.AccessedAt) })
	for _, kv := range all {
		if len(s.entries) <= s.maxEntries && (s.maxBytes <= 0 || s.totalBytes <= s.maxBytes) {
			break
		}
		s.removeLocked(kv.key, kv.ent)
	}
	return nil
}

func (s *DiskStore) removeLocked(key string, ent diskEntry) {
	_ = os.Remove(filepath.Join(s.dataDir, ent.File))
	s.totalBytes -= ent.Size
	delete(s.entries, key)
}

func hashedName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16]) + ".bin"
}
