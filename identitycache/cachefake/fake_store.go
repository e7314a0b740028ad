package cachefake

import (
	"sync"

	"github.com/rbacadmin/rbac-console/identitycache"
	"github.com/rbacadmin/rbac-console/rbac"
)

var _ identitycache.Store = (*FakeStore)(nil)

// FakeStore is an in-memory identitycache.Store for tests.
type FakeStore struct {
	user *rbac.User
	lock sync.RWMutex

	// Err, when set, is returned by every operation.
	Err error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (fs *FakeStore) Get() (*rbac.User, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.Err != nil {
		return nil, fs.Err
	}
	if fs.user == nil {
		return nil, nil
	}
	copied := *fs.user
	return &copied, nil
}

func (fs *FakeStore) Set(user *rbac.User) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.Err != nil {
		return fs.Err
	}
	copied := *user
	fs.user = &copied
	return nil
}

func (fs *FakeStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.Err != nil {
		return fs.Err
	}
	fs.user = nil
	return nil
}
