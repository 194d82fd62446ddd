package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// RegistrationKey serialises company registration, which checks names and emails
// across every tenant.
const RegistrationKey = "company-registration"

var (
	ErrEmptyKey    = errors.New("lock key is empty")
	ErrLockTimeout = errors.New("timed out waiting for lock")
	ErrNoClient    = errors.New("lock client not configured")
)

// Release gives the lock back. Calling it more than once is harmless.
type Release func()

// Locker hands out mutually exclusive leases on string keys.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// CompanyKey scopes a lease to one tenant.
func CompanyKey(companyID int64) string {
	return fmt.Sprintf("company:%d", companyID)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex for single-instance deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		slots: make(map[string]*slot),
		wait:  wait,
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
	}
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
