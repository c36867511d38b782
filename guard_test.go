package urcu

import (
	"sync/atomic"
	"testing"
)

// 场景：空 cell → 发布 → 再发布空（空值往返）。
func TestGuardEmptyRoundTrip(t *testing.T) {
	cell := NewCell[int](nil)

	g1 := cell.Load()
	if !g1.Empty() {
		t.Fatalf("empty cell produced non-empty guard")
	}
	if g1.Value() != nil {
		t.Fatalf("empty guard value should be nil")
	}
	g1.Close()

	v := 42
	cell.Update(NewHandle(&v))
	g2 := cell.Load()
	if g2.Empty() || *g2.Value() != 42 {
		t.Fatalf("guard after publish: empty=%v", g2.Empty())
	}
	g2.Close()

	cell.Update(nil)
	g3 := cell.Load()
	if !g3.Empty() {
		t.Fatalf("guard after nil publish should be empty")
	}
	g3.Close()
}

// 场景：作用域内快照隔离。持有 guard 期间发布新值，
// 同 goroutine 的嵌套读取仍看到旧快照；作用域关闭后看到新值。
func TestGuardSnapshotIsolation(t *testing.T) {
	v1 := 100
	cell := NewCell(NewHandle(&v1))

	g1 := cell.Load()
	if *g1.Value() != 100 {
		t.Fatalf("g1 = %d, want 100", *g1.Value())
	}

	v2 := 200
	cell.Update(NewHandle(&v2))

	// Still inside g1's scope: a nested load binds to the same snapshot.
	g2 := cell.Load()
	if *g2.Value() != 100 {
		t.Fatalf("nested g2 = %d, want 100 (snapshot isolation)", *g2.Value())
	}
	if *g1.Value() != 100 {
		t.Fatalf("g1 changed under a live guard")
	}
	if g1.Value() != g2.Value() {
		t.Fatalf("sibling guards bound to different snapshots")
	}
	g2.Close()
	g1.Close()

	g3 := cell.Load()
	if *g3.Value() != 200 {
		t.Fatalf("g3 = %d, want 200 after scope closed", *g3.Value())
	}
	g3.Close()
}

func TestGuardRefCount(t *testing.T) {
	v := 1
	cell := NewCell(NewHandle(&v))

	g1 := cell.Load()
	if g1.RefCount() != 1 {
		t.Fatalf("refcount = %d, want 1", g1.RefCount())
	}
	g2 := cell.Load()
	g3 := cell.Load()
	if g1.RefCount() != 3 {
		t.Fatalf("refcount = %d, want 3", g1.RefCount())
	}
	g3.Close()
	g2.Close()
	if g1.RefCount() != 1 {
		t.Fatalf("refcount after closes = %d, want 1", g1.RefCount())
	}
	g1.Close()

	// Double close is a harmless no-op.
	g1.Close()
}

// 读者路径回收：版本替换时，slot 原持有的 handle 被释放。
func TestGuardReaderPathReclamation(t *testing.T) {
	var drops atomic.Int64
	v1 := 1
	cell := NewCell(NewHandleWithDrop(&v1, func(*int) { drops.Add(1) }))

	g := cell.Load()
	g.Close()

	v2 := 2
	cell.Update(NewHandle(&v2))
	// The writer released the source's reference; the slot still pins v1.
	if drops.Load() != 0 {
		t.Fatalf("v1 dropped while the slot still holds it")
	}

	// Reconciling to v2 releases the slot's reference on this goroutine.
	g = cell.Load()
	if *g.Value() != 2 {
		t.Fatalf("reconciled value = %d, want 2", *g.Value())
	}
	if drops.Load() != 1 {
		t.Fatalf("v1 drops = %d, want 1 after reconcile", drops.Load())
	}
	g.Close()
}

// 排定清空：LoadWithTLSRelease 的最外层 guard 关闭后，slot 缓存被清空，
// 下一次读取强制与 Source 重新对账。
func TestGuardScheduledRelease(t *testing.T) {
	var drops atomic.Int64
	v1 := 1
	cell := NewCell(NewHandleWithDrop(&v1, func(*int) { drops.Add(1) }))

	g := cell.LoadWithTLSRelease()
	if !g.TLS().ReleaseScheduled() {
		t.Fatalf("release not scheduled")
	}

	v2 := 2
	cell.Update(NewHandle(&v2))

	// Nested guard reuses the pinned snapshot and sees the flag.
	inner := cell.Load()
	if *inner.Value() != 1 {
		t.Fatalf("nested guard = %d, want pinned 1", *inner.Value())
	}
	if !inner.TLS().ReleaseScheduled() {
		t.Fatalf("nested guard does not see the scheduled release")
	}
	inner.Close()
	if drops.Load() != 0 {
		t.Fatalf("slot cleared before the outermost guard closed")
	}

	g.Close()
	// Outermost close dropped the slot's reference; the source already
	// released its own on publish, so v1 dies here.
	if drops.Load() != 1 {
		t.Fatalf("v1 drops = %d, want 1 after outermost close", drops.Load())
	}

	g2 := cell.Load()
	if *g2.Value() != 2 {
		t.Fatalf("reload after release = %d, want 2", *g2.Value())
	}
	g2.Close()
}

// Retain 撤销已排定的清空。
func TestGuardRetainCancelsRelease(t *testing.T) {
	var drops atomic.Int64
	v1 := 1
	cell := NewCell(NewHandleWithDrop(&v1, func(*int) { drops.Add(1) }))

	g := cell.LoadWithTLSRelease()
	g.TLS().Retain()
	if g.TLS().ReleaseScheduled() {
		t.Fatalf("retain did not clear the flag")
	}
	g.Close()

	// Slot still pins v1: no reconcile happened, nothing was dropped.
	if drops.Load() != 0 {
		t.Fatalf("slot released despite retain")
	}

	g2 := cell.Load()
	if *g2.Value() != 1 {
		t.Fatalf("slot cache lost after retain")
	}
	g2.Close()
}

// 排定清空后、且没有任何新发布：下一次读取也必须重新对账成功。
func TestGuardScheduledReleaseWithoutPublish(t *testing.T) {
	v1 := 7
	cell := NewCell(NewHandle(&v1))

	g := cell.LoadWithTLSRelease()
	if *g.Value() != 7 {
		t.Fatalf("value = %d", *g.Value())
	}
	g.Close()

	g2 := cell.Load()
	if g2.Empty() || *g2.Value() != 7 {
		t.Fatalf("reload after release lost the current value")
	}
	g2.Close()
}

// P1：同一 goroutine 的不相交作用域上，观察到的值单调不回退。
func TestGuardMonotonicAcrossScopes(t *testing.T) {
	v0 := 0
	cell := NewCell(NewHandle(&v0))

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			x := i
			cell.Update(NewHandle(&x))
		}
	}()

	last := -1
	for i := 0; i < 50000; i++ {
		g := cell.Load()
		if got := *g.Value(); got < last {
			t.Errorf("observed value went backwards: %d after %d", got, last)
			g.Close()
			break
		} else {
			last = got
		}
		g.Close()
	}
	close(stop)
	<-done
}
