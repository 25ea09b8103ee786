package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"bridgehost/internal/accessory"
)

// cacheFile is the on-disk name of the accessory cache inside the
// storage directory.
const cacheFile = "cachedAccessories.json"

// AccessoryStore reads and writes the accessory cache. Records are kept
// as raw serialized bytes so a record written by a newer plugin version
// survives a round trip untouched.
type AccessoryStore struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger
}

// NewAccessoryStore creates a store rooted at dir. The directory is
// created on first save.
func NewAccessoryStore(dir string, logger *zap.Logger) *AccessoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessoryStore{dir: dir, logger: logger}
}

// Path returns the location of the cache file.
func (s *AccessoryStore) Path() string {
	return filepath.Join(s.dir, cacheFile)
}

// Load reads the cache and rehydrates every record it can. A missing
// cache file is a fresh install, not an error. Records that fail to
// decode are logged and skipped so one corrupt entry cannot block the
// rest from restoring.
func (s *AccessoryStore) Load() ([]*accessory.Accessory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accessory cache: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse accessory cache: %w", err)
	}

	accs := make([]*accessory.Accessory, 0, len(records))
	for i, record := range records {
		acc, err := accessory.Deserialize(record)
		if err != nil {
			s.logger.Error("skipping unreadable cached accessory",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		accs = append(accs, acc)
	}
	return accs, nil
}

// Save writes the full accessory set, replacing any previous cache. The
// write goes through a temp file and rename so a crash cannot leave a
// half-written cache behind.
func (s *AccessoryStore) Save(accs []*accessory.Accessory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]json.RawMessage, 0, len(accs))
	for _, acc := range accs {
		record, err := accessory.Serialize(acc)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", acc.DisplayName(), err)
		}
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accessory cache: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, cacheFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write accessory cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace accessory cache: %w", err)
	}
	return nil
}
