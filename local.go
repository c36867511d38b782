package urcu

import (
	"github.com/nanjiek/pixiu-urcu/internal/gls"
)

// slot 是 (cell, goroutine) 粒度的一格缓存：
// 记录该 goroutine 最近一次对账到的 (version, ptr, handle)，
// 以及当前存活 guard 数与"延迟清空"标记。
//
// 所有字段仅由持有它的 goroutine 读写（表查找在 gls 内部加锁），
// 因此不需要原子操作。
type slot[T any] struct {
	init      bool
	version   uint64
	ptr       *T
	handle    *Handle[T]
	refCount  uint64
	toRelease bool
}

// Local 把 Source 和每-goroutine 的 slot 桥接起来：
// 为调用方 goroutine 解析出当前快照并返回 guard。
//
// 版本对账只发生在 refCount 0→1 的时刻；嵌套 guard 原样复用
// 已缓存的快照（同一作用域内的快照隔离）。
type Local[T any] struct {
	src   *Source[T]
	rec   *Reclaimer
	slots gls.Table[slot[T]]
}

// NewLocal 创建 Local。rec 可以为 nil。
func NewLocal[T any](src *Source[T], rec *Reclaimer) *Local[T] {
	if src == nil {
		panic("urcu: nil source")
	}
	return &Local[T]{src: src, rec: rec}
}

// Read 返回绑定到当前 goroutine slot 的 guard。
// 调用者必须在同一 goroutine 上恰好调用一次 guard.Close。
func (l *Local[T]) Read() *Guard[T] {
	return newGuard(l, l.slots.Get(), false)
}

// ReadAndScheduleRelease 同 Read，并在 slot 上置位"延迟清空"：
// 最外层 guard 关闭时清空缓存的 handle，下次读取强制重新对账。
// 适合持有大值的临时 goroutine。
func (l *Local[T]) ReadAndScheduleRelease() *Guard[T] {
	return newGuard(l, l.slots.Get(), true)
}

// reconcile runs only on the 0→1 refCount transition.
func (l *Local[T]) reconcile(sl *slot[T]) {
	if !sl.init {
		ver, h := l.src.Load()
		sl.init = true
		sl.version = ver
		sl.handle = h
		sl.ptr = h.Value()
		return
	}

	ver, h := l.src.LoadIfNewer(sl.version)
	if ver == sl.version {
		return
	}

	old := sl.handle
	sl.version = ver
	sl.handle = h
	sl.ptr = h.Value()

	// Reader-path reclamation: the superseded handle is released here,
	// or routed to the reclaimer to keep the drop hook off this
	// goroutine.
	if old != nil {
		if l.rec != nil {
			l.rec.Push(old)
		} else {
			old.Release()
		}
	}
}
