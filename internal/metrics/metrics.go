// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RuleReloads counts full reloads applied to the rule cell.
	RuleReloads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pixiu_urcu",
		Name:      "rule_reloads_total",
		Help:      "Full rule set reloads published to the rule cell.",
	})

	// RulePublishes counts single-rule upserts published to the rule cell.
	RulePublishes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pixiu_urcu",
		Name:      "rule_publishes_total",
		Help:      "Single rule upserts published to the rule cell.",
	})

	// SnapshotReads counts multi-cell snapshot views taken by request handling.
	SnapshotReads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pixiu_urcu",
		Name:      "snapshot_reads_total",
		Help:      "Bundle snapshots taken across the rule and flag cells.",
	})
)
