package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// storedPair is the on-disk envelope. SavedAt drives the TTL check on read.
type storedPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	SavedAt      time.Time `json:"savedAt"`
}

// FileStorage persists the pair as a JSON file with owner-only permissions.
// Pairs older than the TTL are treated as absent on read.
type FileStorage struct {
	path string
	ttl  time.Duration
	lock sync.Mutex
}

var _ Storage = (*FileStorage)(nil)

// FileStorageOption modifies a FileStorage.
type FileStorageOption func(*FileStorage)

// WithTTL overrides the default seven day expiry.
func WithTTL(ttl time.Duration) FileStorageOption {
	return func(fs *FileStorage) {
		fs.ttl = ttl
	}
}

// NewFileStorage creates a FileStorage writing to path.
func NewFileStorage(path string, options ...FileStorageOption) *FileStorage {
	fs := &FileStorage{
		path: path,
		ttl:  DefaultTTL,
	}
	for _, opt := range options {
		opt(fs)
	}
	return fs
}

func (fs *FileStorage) Get() (*Pair, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStorage.Get] read")
	}

	var stored storedPair
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrap(err, "[FileStorage.Get] unmarshal")
	}
	if NowTimeFunc().Sub(stored.SavedAt) > fs.ttl {
		return nil, nil
	}
	return &Pair{AccessToken: stored.AccessToken, RefreshToken: stored.RefreshToken}, nil
}

func (fs *FileStorage) Set(pair *Pair) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	data, err := json.Marshal(storedPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SavedAt:      NowTimeFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "[FileStorage.Set] marshal")
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStorage.Set] mkdir")
	}
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStorage.Set] write")
	}
	return nil
}

func (fs *FileStorage) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStorage.Clear] remove")
	}
	return nil
}
