package urcu

import (
	"sync/atomic"
)

// Source 是一个 cell 内部权威的 (value, version) 对
// - 写入通过短自旋锁串行化，版本号单调递增，绝不回退
// - 两条读路径（Load / LoadIfNewer）无锁，从不阻塞写入
//
// 一致性说明：version 和 value 是两个独立的原子量，读取时不保证
// 跨原子量的事务性。读者可能观察到比随后取到的 value 更新的 version
// （或相反）。这是刻意设计：读者需要的是"取到某个已发布的有效版本"
// 与单调推进，而不是线性化的 (value, version) 快照。
type Source[T any] struct {
	value   atomic.Pointer[Handle[T]]
	version atomic.Uint64
	mu      spinLock
	rec     *Reclaimer
}

// NewSource 创建 Source。init 可以为 nil（空 cell）；
// init 的引用所有权转移给 Source。rec 可以为 nil。
func NewSource[T any](init *Handle[T], rec *Reclaimer) *Source[T] {
	s := &Source[T]{rec: rec}
	s.value.Store(init)
	return s
}

// Update 发布新值并递增版本号。h 可以为 nil（发布"空"）。
// h 的引用所有权转移给 Source；被替换的旧值在锁外交给 Reclaimer
// （若绑定），否则立即释放引用。
func (s *Source[T]) Update(h *Handle[T]) {
	s.mu.lock()
	old := s.value.Load()
	s.value.Store(h)
	s.version.Add(1)
	s.mu.unlock()

	if old == nil {
		return
	}
	if s.rec != nil {
		s.rec.Push(old)
	} else {
		old.Release()
	}
}

// Load 返回当前 (version, handle)，handle 已被 Retain（调用者负责 Release）。
// 空 cell 返回 (version, nil)。
func (s *Source[T]) Load() (uint64, *Handle[T]) {
	for {
		ver := s.version.Load()
		h := s.value.Load()
		if h == nil {
			return ver, nil
		}
		// tryRetain fails only when a concurrent publish replaced h and
		// the last reference died before we got here; re-read the newer
		// publish.
		if h.tryRetain() {
			return ver, h
		}
	}
}

// LoadIfNewer 对比调用者已持有的版本号。
// 版本未变时返回 (v, nil)，表示"调用者已是最新"，不取值；
// 否则返回新的 (version, handle)，handle 已 Retain（可能为 nil：发布了空值）。
func (s *Source[T]) LoadIfNewer(v uint64) (uint64, *Handle[T]) {
	ver := s.version.Load()
	if ver == v {
		return v, nil
	}
	for {
		h := s.value.Load()
		if h == nil {
			return ver, nil
		}
		if h.tryRetain() {
			return ver, h
		}
		ver = s.version.Load()
	}
}

// Version 返回当前版本号（诊断用）
func (s *Source[T]) Version() uint64 {
	return s.version.Load()
}
