package storagefake

import (
	"sync"

	"github.com/rbacadmin/rbac-console/credentials"
)

var _ credentials.Storage = (*FakeStorage)(nil)

// FakeStorage is an in-memory credentials.Storage for tests.
type FakeStorage struct {
	pair *credentials.Pair
	lock sync.RWMutex

	// Err, when set, is returned by every operation.
	Err error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{}
}

func (fs *FakeStorage) Get() (*credentials.Pair, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.Err != nil {
		return nil, fs.Err
	}
	if fs.pair == nil {
		return nil, nil
	}
	pair := *fs.pair
	return &pair, nil
}

func (fs *FakeStorage) Set(pair *credentials.Pair) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.Err != nil {
		return fs.Err
	}
	copied := *pair
	fs.pair = &copied
	return nil
}

func (fs *FakeStorage) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.Err != nil {
		return fs.Err
	}
	fs.pair = nil
	return nil
}
