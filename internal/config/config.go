package config

import (
	"os"
	"time"
)

import (
	"gopkg.in/yaml.v3"
)

// ServerCfg —— HTTP 服务端口/地址配置
type ServerCfg struct {
	HTTPAddr string `yaml:"httpAddr"` // 监听地址，例如 ":8080" 或 "0.0.0.0:8080"
}

// RedisCfg —— Redis 连接与命名空间配置
type RedisCfg struct {
	Addr           string `yaml:"addr"`           // Redis address, e.g. "127.0.0.1:6379"
	Password       string `yaml:"password"`       // Redis password
	DB             int    `yaml:"db"`             // Redis DB index
	Prefix         string `yaml:"prefix"`         // Key prefix
	UpdatesChannel string `yaml:"updatesChannel"` // Pub/Sub channel for rule updates
	PoolSize       int    `yaml:"poolSize"`       // Connection pool size
	ReadTimeoutMs  int    `yaml:"readTimeoutMs"`  // Read timeout (ms)
	WriteTimeoutMs int    `yaml:"writeTimeoutMs"` // Write timeout (ms)
	DialTimeoutMs  int    `yaml:"dialTimeoutMs"`  // Dial timeout (ms)
}

// ReclaimCfg —— 后台回收器配置
type ReclaimCfg struct {
	Enabled      bool `yaml:"enabled"`      // 是否启动回收器
	IntervalMs   int  `yaml:"intervalMs"`   // 扫描周期（毫秒），0 表示只靠通知
	WaitForStart bool `yaml:"waitForStart"` // 构造时是否等待 worker 就绪
}

// Interval returns the scan period as a duration.
func (r ReclaimCfg) Interval() time.Duration {
	if r.IntervalMs <= 0 {
		return 0
	}
	return time.Duration(r.IntervalMs) * time.Millisecond
}

// Rule —— 单条路由规则
type Rule struct {
	RuleID   string `yaml:"ruleId"   json:"ruleId"`   // 规则唯一 ID
	Match    string `yaml:"match"    json:"match"`    // 路由匹配（示例："/api/login" 或 "*"）
	Priority int    `yaml:"priority" json:"priority"` // higher wins
	Limit    int64  `yaml:"limit"    json:"limit"`    // 基础速率/上限
	Burst    int64  `yaml:"burst"    json:"burst"`    // 允许的突发容量
	Enabled  bool   `yaml:"enabled"  json:"enabled"`  // 是否启用此规则
}

// Config —— 全量配置
type Config struct {
	Server         ServerCfg       `yaml:"server"`         // 服务配置
	Redis          RedisCfg        `yaml:"redis"`          // Redis 配置
	Reclaim        ReclaimCfg      `yaml:"reclaim"`        // 回收器配置
	BootstrapRules []Rule          `yaml:"bootstrapRules"` // 启动时注入的初始规则（如无则可留空）
	BootstrapFlags map[string]bool `yaml:"bootstrapFlags"` // 启动时的特性开关
}

// Load —— 从 YAML 文件加载配置
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(b))
	var c Config
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "pixiu:urcu"
	}
	if c.Redis.UpdatesChannel == "" {
		c.Redis.UpdatesChannel = c.Redis.Prefix + ":updates"
	}
}
