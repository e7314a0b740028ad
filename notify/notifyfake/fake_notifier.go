package notifyfake

import (
	"sync"

	"github.com/rbacadmin/rbac-console/notify"
)

var _ notify.Notifier = (*FakeNotifier)(nil)

// FakeNotifier records notifications for assertions in tests.
type FakeNotifier struct {
	successes []string
	errs      []string
	lock      sync.Mutex
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (fn *FakeNotifier) Success(message string) {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	fn.successes = append(fn.successes, message)
}

func (fn *FakeNotifier) Error(message string) {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	fn.errs = append(fn.errs, message)
}

func (fn *FakeNotifier) Successes() []string {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	return append([]string(nil), fn.successes...)
}

func (fn *FakeNotifier) Errors() []string {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	return append([]string(nil), fn.errs...)
}
