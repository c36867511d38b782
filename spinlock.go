package urcu

import (
	"runtime"
	"sync/atomic"
)

// spinLock serializes publishers. Publishes are short and rare relative
// to reads, so a yield-on-contention spin beats a full mutex here.
// Readers never touch it.
type spinLock struct {
	flag atomic.Bool
}

func (l *spinLock) lock() {
	for !l.flag.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *spinLock) unlock() {
	l.flag.Store(false)
}
