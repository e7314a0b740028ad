// Package identitycache mirrors the authenticated user's profile into a
// client-local file so a restarted process can show who is logged in before
// the first profile fetch completes. Tokens never go through this store; they
// live in the credentials storage with its own expiry.
package identitycache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rbacadmin/rbac-console/rbac"
)

// Store caches the last known identity. Get returns (nil, nil) when nothing
// is cached. Caching is best-effort: callers should treat a failed Get as an
// absent identity rather than a fatal condition.
type Store interface {
	Get() (*rbac.User, error)
	Set(user *rbac.User) error
	Clear() error
}

// FileStore persists the identity as a JSON file.
type FileStore struct {
	path string
	lock sync.Mutex
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Get() (*rbac.User, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.Get] read")
	}

	var user rbac.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, errors.Wrap(err, "[FileStore.Get] unmarshal")
	}
	return &user, nil
}

func (fs *FileStore) Set(user *rbac.User) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	data, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Set] marshal")
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.Set] mkdir")
	}
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Set] write")
	}
	return nil
}

func (fs *FileStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove")
	}
	return nil
}
