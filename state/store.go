package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorruptCache is returned when the state file exists but cannot be used.
var ErrCorruptCache = errors.New("state cache is corrupt")

// StateCache is the persisted form of the synchronizer state.
type StateCache struct {
	LastBlockNumber uint64    `json:"last_block_number"`
	Borrowers       Borrowers `json:"borrowers"`
}

// Store reads and writes the state cache file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the cached state. found is false when no file exists.
func (s *Store) Load() (cache *StateCache, found bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCorruptCache, s.path, err)
	}

	var c StateCache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCorruptCache, s.path, err)
	}
	if c.Borrowers == nil {
		c.Borrowers = make(Borrowers)
	}
	for key, borrower := range c.Borrowers {
		if borrower == nil {
			return nil, false, fmt.Errorf("%w: %s: null entry for %s", ErrCorruptCache, s.path, key.Hex())
		}
		if borrower.Address != key {
			return nil, false, fmt.Errorf("%w: %s: entry %s has address %s", ErrCorruptCache, s.path, key.Hex(), borrower.Address.Hex())
		}
		if borrower.Collateral == nil {
			borrower.Collateral = NewAddressSet()
		}
		if borrower.Debt == nil {
			borrower.Debt = NewAddressSet()
		}
	}
	return &c, true, nil
}

// Save replaces the file with cache and returns the number of bytes written.
// The new content is written beside the target and renamed over it.
func (s *Store) Save(cache *StateCache) (int, error) {
	data, err := json.Marshal(cache)
	if err != nil {
		return 0, fmt.Errorf("failed to encode state cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create state cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write state cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write state cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return 0, fmt.Errorf("failed to replace state cache: %w", err)
	}
	return len(data), nil
}

// Remove deletes the state file. A missing file is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state cache: %w", err)
	}
	return nil
}
