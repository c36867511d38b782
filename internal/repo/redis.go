package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

import (
	"github.com/redis/go-redis/v9"
)

import (
	"github.com/nanjiek/pixiu-urcu/internal/config"
)

// Key templates for better readability and maintainability
const (
	keyRuleTmpl = "%s:rule:{%s}"
)

// Repo interface for abstraction (easy to mock/test)
type Repo interface {
	KeyRule(id string) string
	LoadRules(ctx context.Context) (map[string]config.Rule, error)
	SaveRule(ctx context.Context, r config.Rule) error
	RuleExists(ctx context.Context, id string) (bool, error)
	PublishUpdate(ctx context.Context, ruleID string) error
	Subscribe(ctx context.Context) *redis.PubSub
	Close() error
}

type RedisRepo struct {
	Prefix         string
	UpdateChannel  string
	Cli            *redis.Client
	logger         *slog.Logger
	defaultTimeout time.Duration // Unified timeout config
}

// Option configures the repo.
type Option func(*RedisRepo)

// WithTimeout overrides the per-command timeout applied by the repo.
func WithTimeout(d time.Duration) Option {
	return func(r *RedisRepo) {
		if d > 0 {
			r.defaultTimeout = d
		}
	}
}

// NewRedis builds the rule repository from config.
func NewRedis(cfg *config.Config, logger *slog.Logger, opts ...Option) (*RedisRepo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &RedisRepo{
		Prefix:         cfg.Redis.Prefix,
		UpdateChannel:  cfg.Redis.UpdatesChannel,
		logger:         logger,
		defaultTimeout: 2 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}

	r.Cli = redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		ReadTimeout:  time.Duration(cfg.Redis.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Redis.WriteTimeoutMs) * time.Millisecond,
		DialTimeout:  time.Duration(cfg.Redis.DialTimeoutMs) * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.defaultTimeout)
	defer cancel()
	if err := r.Cli.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RedisRepo) KeyRule(id string) string {
	return fmt.Sprintf(keyRuleTmpl, r.Prefix, id)
}

// LoadRules 全量加载规则（SCAN 替代 KEYS，避免阻塞 Redis）。
func (r *RedisRepo) LoadRules(ctx context.Context) (map[string]config.Rule, error) {
	res := make(map[string]config.Rule)
	cursor := uint64(0)
	pattern := r.KeyRule("*")

	for {
		keys, newCursor, err := r.Cli.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			r.logger.Error("failed to scan rules", "error", err)
			return nil, err
		}

		for _, key := range keys {
			val, err := r.Cli.Get(ctx, key).Bytes()
			if err != nil {
				r.logger.Warn("failed to get rule", "key", key, "error", err)
				continue
			}
			var rule config.Rule
			if err := json.Unmarshal(val, &rule); err != nil {
				r.logger.Warn("failed to unmarshal rule", "key", key, "error", err)
				continue
			}
			if rule.RuleID == "" {
				continue
			}
			res[rule.RuleID] = rule
		}

		cursor = newCursor
		if cursor == 0 {
			break
		}
	}
	return res, nil
}

func (r *RedisRepo) SaveRule(ctx context.Context, rule config.Rule) error {
	b, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	return r.Cli.Set(ctx, r.KeyRule(rule.RuleID), b, 0).Err()
}

func (r *RedisRepo) RuleExists(ctx context.Context, id string) (bool, error) {
	n, err := r.Cli.Exists(ctx, r.KeyRule(id)).Result()
	return n > 0, err
}

func (r *RedisRepo) PublishUpdate(ctx context.Context, ruleID string) error {
	return r.Cli.Publish(ctx, r.UpdateChannel, ruleID).Err()
}

func (r *RedisRepo) Subscribe(ctx context.Context) *redis.PubSub {
	return r.Cli.Subscribe(ctx, r.UpdateChannel)
}

func (r *RedisRepo) Close() error {
	return r.Cli.Close()
}
