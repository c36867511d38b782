package urcu

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

import (
	"github.com/petermattis/goid"
)

// Retired is the reclaimer-facing view of a handle: enough to ask
// whether the reclaimer is the sole remaining owner and to drop the
// reference it holds.
type Retired interface {
	RefCount() int64
	Release()
}

// Reclaimer 持有被替换下来的旧值 handle，并在自己成为唯一所有者时
// 释放它们，让 drop 回调在回收 goroutine 上执行，而不是在读写热路径上。
//
// 扫描时机：收到 Push 通知，或每 reclaimInterval 周期兜底一次
// （interval 为 0 时只靠通知，长时间无新退役可能任意推迟回收）。
type Reclaimer struct {
	mu      sync.Mutex
	set     map[Retired]struct{}
	stopped bool

	notify   chan struct{}
	stop     chan struct{}
	done     chan struct{}
	interval time.Duration
	workerID atomic.Int64
	log      *slog.Logger
}

// NewReclaimer 启动回收 worker。
// waitForStart 为 true 时阻塞到 worker 已运行并记录了自己的 goroutine id。
// interval 为 0 表示只在收到通知时扫描。
func NewReclaimer(waitForStart bool, interval time.Duration) *Reclaimer {
	r := &Reclaimer{
		set:      make(map[Retired]struct{}),
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		interval: interval,
		log:      slog.Default(),
	}
	started := make(chan struct{})
	go r.workerLoop(started)
	if waitForStart {
		<-started
	}
	return r
}

// Push 把一个退役 handle 移交给回收器（转移一个引用的所有权）。
// nil 是空操作；重复插入被折叠；回收器已停止时做尽力而为的释放，
// 未能释放的由最后一个持有者兜底。
func (r *Reclaimer) Push(h Retired) {
	if h == nil || h.RefCount() <= 0 {
		return
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		h.Release()
		return
	}
	if _, dup := r.set[h]; dup {
		r.mu.Unlock()
		// The set already owns a reference to this handle; collapse the
		// duplicate by dropping the incoming one.
		h.Release()
		return
	}
	r.set[h] = struct{}{}
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// WorkerID 返回回收 worker 的 goroutine id。
func (r *Reclaimer) WorkerID() int64 {
	return r.workerID.Load()
}

// Len 返回队列中等待回收的 handle 数（测试与诊断用）。
func (r *Reclaimer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.set)
}

// Close 停止 worker 并释放回收器持有的全部引用。
// 仍被他处共享的 T 由其余持有者在最后一次 Release 时销毁。
func (r *Reclaimer) Close() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stop)
	<-r.done

	r.mu.Lock()
	set := r.set
	r.set = nil
	r.mu.Unlock()

	for h := range set {
		h.Release()
	}
	if n := len(set); n > 0 {
		r.log.Debug("reclaimer drained on close", "released", n)
	}
}

func (r *Reclaimer) workerLoop(started chan<- struct{}) {
	r.workerID.Store(goid.Get())
	close(started)
	defer close(r.done)

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-r.stop:
			return
		case <-r.notify:
		case <-tick:
		}
		r.scan()
	}
}

// scan moves sole-owned handles out of the lock, then releases them so
// drop hooks run on the worker goroutine without holding the mutex.
func (r *Reclaimer) scan() {
	var buf []Retired
	r.mu.Lock()
	for h := range r.set {
		if h.RefCount() == 1 {
			buf = append(buf, h)
			delete(r.set, h)
		}
	}
	r.mu.Unlock()

	for _, h := range buf {
		h.Release()
	}
}
