package urcu

// Cell 是对外的版本化容器：一个 Source + 一个 Local，外加可选的 Reclaimer。
//
// 典型用法：
//
//	cell := urcu.NewCell(urcu.NewHandle(&cfg))
//	...
//	g := cell.Load()
//	defer g.Close()
//	use(g.Value())
//
// 写路径：
//
//	cell.Update(urcu.NewHandle(&newCfg))
//
// 前置条件（不做检查）：cell 必须比所有还会读它的 goroutine 活得久；
// 绑定的 Reclaimer（若有）必须比 cell 活得久。
type Cell[T any] struct {
	rec   *Reclaimer
	src   *Source[T]
	local *Local[T]
}

// CellOption configures NewCell.
type CellOption func(*cellConfig)

type cellConfig struct {
	rec *Reclaimer
}

// WithReclaimer 把被替换的旧值交给 rec 后台释放，
// 使 drop 回调不在读写热路径所在的 goroutine 上执行。
func WithReclaimer(rec *Reclaimer) CellOption {
	return func(c *cellConfig) {
		c.rec = rec
	}
}

// NewCell 创建 cell。init 可以为 nil（空 cell），
// 其引用所有权转移给 cell。
func NewCell[T any](init *Handle[T], opts ...CellOption) *Cell[T] {
	var cfg cellConfig
	for _, o := range opts {
		o(&cfg)
	}
	src := NewSource(init, cfg.rec)
	return &Cell[T]{
		rec:   cfg.rec,
		src:   src,
		local: NewLocal(src, cfg.rec),
	}
}

// Update 发布新值（所有权转移），版本号递增。h 可以为 nil。
func (c *Cell[T]) Update(h *Handle[T]) {
	c.src.Update(h)
}

// Assign 是 Update 的同义词。
func (c *Cell[T]) Assign(h *Handle[T]) {
	c.src.Update(h)
}

// Load 返回绑定当前作用域的 guard。必须配对调用 guard.Close。
func (c *Cell[T]) Load() *Guard[T] {
	return c.local.Read()
}

// LoadWithTLSRelease 同 Load，并排定最外层 guard 关闭时清空本
// goroutine 的 slot 缓存。
func (c *Cell[T]) LoadWithTLSRelease() *Guard[T] {
	return c.local.ReadAndScheduleRelease()
}

// Version 返回当前已发布的版本号。
func (c *Cell[T]) Version() uint64 {
	return c.src.Version()
}
