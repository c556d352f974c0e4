// Package pagelock serializes the read-merge-write of a single index page.
// The local locker covers goroutines of one process; the Redis locker covers
// several indexer processes sharing an index file.
package pagelock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock on one page. The returned function
// releases it.
type Locker interface {
	Lock(ctx context.Context, page int) (unlock func(), err error)
}

// DefaultStripes is the number of mutexes in a Local locker.
const DefaultStripes = 1024

// Local maps pages onto a fixed set of mutexes. Two pages may share a
// stripe, which only costs parallelism.
type Local struct {
	stripes []sync.Mutex
}

func NewLocal(stripes int) *Local {
	if stripes <= 0 {
		stripes = DefaultStripes
	}
	return &Local{stripes: make([]sync.Mutex, stripes)}
}

func (l *Local) Lock(ctx context.Context, page int) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mu := &l.stripes[page%len(l.stripes)]
	mu.Lock()
	return mu.Unlock, nil
}

// Nop never blocks. It is used when pages are merged by a single goroutine.
type Nop struct{}

func (Nop) Lock(context.Context, int) (func(), error) {
	return func() {}, nil
}
