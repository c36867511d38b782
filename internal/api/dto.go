package api

import (
	"github.com/nanjiek/pixiu-urcu/internal/config"
)

type RuleRequest struct {
	RuleID   string `json:"ruleId"`
	Match    string `json:"match"`
	Priority int    `json:"priority"`
	Limit    int64  `json:"limit"`
	Burst    int64  `json:"burst"`
	Enabled  bool   `json:"enabled"`
}

type ResolveRequest struct {
	RuleID string `json:"ruleId"`
	Route  string `json:"route"`
}

type SnapshotResponse struct {
	Rules map[string]config.Rule `json:"rules"`
	Flags map[string]bool        `json:"flags"`
}

type FlagRequest struct {
	On bool `json:"on"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
