package urcu

import (
	"sync/atomic"
)

// Handle 是指向不可变值 T 的共享所有权引用（显式引用计数）
// 特性：
// - 多个 Handle 可以同时指向同一个 T
// - 引用计数归零时调用 drop 回调（相当于 T 的析构函数），且只调用一次
// - nil *Handle 表示"空"，cell 允许发布空值
//
// 注意：Retain/Release 必须严格配对，Release 之后不得再使用该引用
type Handle[T any] struct {
	value *T
	drop  func(*T)
	refs  atomic.Int64
}

// NewHandle 创建引用计数为 1 的 Handle，调用者持有这一个引用
func NewHandle[T any](v *T) *Handle[T] {
	return NewHandleWithDrop(v, nil)
}

// NewHandleWithDrop 同 NewHandle，并注册 drop 回调
// drop 在最后一个引用释放时、于释放者所在的 goroutine 上执行
func NewHandleWithDrop[T any](v *T, drop func(*T)) *Handle[T] {
	h := &Handle[T]{value: v, drop: drop}
	h.refs.Store(1)
	return h
}

// Retain 增加一个引用并返回自身，便于链式传递。nil 安全。
func (h *Handle[T]) Retain() *Handle[T] {
	if h == nil {
		return nil
	}
	h.refs.Add(1)
	return h
}

// tryRetain acquires a reference only if the count has not already
// reached zero. A handle whose count hit zero is dead: its drop hook has
// run (or is running) and it must not be resurrected. Callers that lose
// this race re-read the source, which by then holds a newer publish.
func (h *Handle[T]) tryRetain() bool {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release 释放一个引用。计数归零时在当前 goroutine 上执行 drop。nil 安全。
func (h *Handle[T]) Release() {
	if h == nil {
		return
	}
	if h.refs.Add(-1) == 0 {
		if h.drop != nil {
			h.drop(h.value)
		}
	}
}

// RefCount 返回当前引用计数（诊断与回收扫描用，读取即过期）
func (h *Handle[T]) RefCount() int64 {
	if h == nil {
		return 0
	}
	return h.refs.Load()
}

// Value 返回底层值指针。空 Handle 返回 nil。
func (h *Handle[T]) Value() *T {
	if h == nil {
		return nil
	}
	return h.value
}
