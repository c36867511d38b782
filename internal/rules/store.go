package rules

import (
	"context"
	"errors"
	"log/slog"
	"sort"
)

import (
	"github.com/nanjiek/pixiu-urcu"
	"github.com/nanjiek/pixiu-urcu/internal/config"
	"github.com/nanjiek/pixiu-urcu/internal/metrics"
	"github.com/nanjiek/pixiu-urcu/internal/repo"
)

// RuleSet 不可变规则集，整体发布到 rule cell
type RuleSet struct {
	Rules map[string]config.Rule
}

// FlagSet 不可变特性开关集，整体发布到 flag cell
type FlagSet struct {
	Flags map[string]bool
}

// Store 把规则与特性开关放进两个 cell：
// 读路径走 guard / bundle 快照，写路径整体替换并广播失效。
type Store struct {
	cfg   *config.Config
	rdb   *repo.RedisRepo
	rules *urcu.Cell[RuleSet]
	flags *urcu.Cell[FlagSet]
	log   *slog.Logger

	// Redis accessors are injectable so tests can run without a server.
	loadAll    func(ctx context.Context) (map[string]config.Rule, error)
	saveRule   func(ctx context.Context, r config.Rule) error
	ruleExists func(ctx context.Context, id string) (bool, error)
	publish    func(ctx context.Context, ruleID string) error
}

// NewStore 创建 Store。rec 可以为 nil（被替换的快照在读写路径上释放）。
func NewStore(cfg *config.Config, r *repo.RedisRepo, rec *urcu.Reclaimer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	flags := make(map[string]bool, len(cfg.BootstrapFlags))
	for k, v := range cfg.BootstrapFlags {
		flags[k] = v
	}

	var opts []urcu.CellOption
	if rec != nil {
		opts = append(opts, urcu.WithReclaimer(rec))
	}

	s := &Store{
		cfg:   cfg,
		rdb:   r,
		rules: urcu.NewCell(urcu.NewHandle(&RuleSet{Rules: map[string]config.Rule{}}), opts...),
		flags: urcu.NewCell(urcu.NewHandle(&FlagSet{Flags: flags}), opts...),
		log:   logger,
	}
	if r != nil {
		s.loadAll = r.LoadRules
		s.saveRule = r.SaveRule
		s.ruleExists = r.RuleExists
		s.publish = r.PublishUpdate
	}
	return s
}

// Bootstrap 写入启动规则（仅首次，不覆盖同名），然后全量加载。
func (s *Store) Bootstrap(ctx context.Context) error {
	if s.saveRule == nil || s.ruleExists == nil {
		return errors.New("rules: redis accessors not set")
	}
	for _, r := range s.cfg.BootstrapRules {
		exists, err := s.ruleExists(ctx, r.RuleID)
		if err != nil {
			return err
		}
		if !exists {
			if err := s.saveRule(ctx, r); err != nil {
				return err
			}
		}
	}
	return s.ReloadAll(ctx)
}

// ReloadAll 全量加载并整体替换规则快照。
func (s *Store) ReloadAll(ctx context.Context) error {
	if s.loadAll == nil {
		return errors.New("rules: redis accessors not set")
	}
	m, err := s.loadAll(ctx)
	if err != nil {
		return err
	}
	s.ReplaceAll(m)
	return nil
}

// ReplaceAll replaces the entire rule snapshot with a new immutable set.
func (s *Store) ReplaceAll(rules map[string]config.Rule) {
	s.rules.Update(urcu.NewHandle(&RuleSet{Rules: rules}))
	metrics.RuleReloads.Inc()
	s.log.Info("reloaded rules", "count", len(rules))
}

// Upsert 持久化单条规则，并以写时复制的方式发布新快照，
// 再通过 Pub/Sub 通知其他实例重载。
func (s *Store) Upsert(ctx context.Context, r config.Rule) error {
	if r.RuleID == "" {
		return errors.New("ruleId required")
	}
	if s.saveRule != nil {
		if err := s.saveRule(ctx, r); err != nil {
			return err
		}
	}

	g := s.rules.Load()
	old := g.Value()
	newRules := make(map[string]config.Rule, len(old.Rules)+1)
	for k, v := range old.Rules {
		newRules[k] = v
	}
	newRules[r.RuleID] = r
	g.Close()

	s.rules.Update(urcu.NewHandle(&RuleSet{Rules: newRules}))
	metrics.RulePublishes.Inc()

	if s.publish != nil {
		return s.publish(ctx, r.RuleID)
	}
	return nil
}

// Get 返回规则（若存在）。
func (s *Store) Get(id string) (config.Rule, bool) {
	g := s.rules.Load()
	defer g.Close()
	r, ok := g.Value().Rules[id]
	return r, ok
}

// Resolve 按 ID 精确解析，或按路由匹配返回优先级最高的启用规则。
func (s *Store) Resolve(ruleID, route string) (config.Rule, error) {
	g := s.rules.Load()
	defer g.Close()
	snapshot := g.Value()

	if ruleID != "" {
		if r, ok := snapshot.Rules[ruleID]; ok && r.Enabled {
			return r, nil
		}
		return config.Rule{}, errors.New("rule not found or disabled")
	}

	var candidates []config.Rule
	for _, r := range snapshot.Rules {
		if r.Enabled && (r.Match == "*" || r.Match == route) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return config.Rule{}, errors.New("no enabled rule found")
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority == candidates[j].Priority {
			return candidates[i].RuleID < candidates[j].RuleID
		}
		return candidates[i].Priority > candidates[j].Priority
	})
	return candidates[0], nil
}

// SetFlag 以写时复制的方式发布新的开关快照。
func (s *Store) SetFlag(name string, on bool) {
	g := s.flags.Load()
	old := g.Value()
	next := make(map[string]bool, len(old.Flags)+1)
	for k, v := range old.Flags {
		next[k] = v
	}
	next[name] = on
	g.Close()

	s.flags.Update(urcu.NewHandle(&FlagSet{Flags: next}))
	s.log.Info("flag updated", "flag", name, "on", on)
}

// View 在一个作用域内同时钉住规则与开关的快照。
type View struct {
	b *urcu.Bundle2[RuleSet, FlagSet]
}

// View 返回跨两个 cell 的快照视图；调用方必须 Close。
func (s *Store) View() *View {
	metrics.SnapshotReads.Inc()
	return &View{b: urcu.NewBundle2(s.rules, s.flags)}
}

// Rules 返回视图内的规则集。
func (v *View) Rules() *RuleSet { return v.b.First().Value() }

// Flags 返回视图内的开关集。
func (v *View) Flags() *FlagSet { return v.b.Second().Value() }

// Close 按构造的相反顺序释放视图持有的快照。
func (v *View) Close() { v.b.Close() }
