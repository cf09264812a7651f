// Package metrics holds the prometheus collectors of the fund and board engines.
// A nil registerer gives working but unregistered collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pooled_fund"

type FundMetrics struct {
	Contributions   *prometheus.CounterVec
	Withdrawals     prometheus.Counter
	SharesMinted    prometheus.Counter
	SharesBurned    prometheus.Counter
	Management      *prometheus.CounterVec
	MembershipFlow  *prometheus.CounterVec
	Members         prometheus.Gauge
	FundValue       prometheus.Gauge
	ValueSnapshots  prometheus.Counter
	RegistryFailure prometheus.Counter
}

func NewFundMetrics(reg prometheus.Registerer) *FundMetrics {
	factory := promauto.With(reg)
	return &FundMetrics{
		Contributions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributions_total",
			Help:      "Contributions accepted, by kind (initial, direct, recurring)",
		}, []string{"kind"}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "benefit_withdrawals_total",
			Help:      "Member benefit withdrawals",
		}),
		SharesMinted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_minted_total",
			Help:      "Shares minted, in whole share units",
		}),
		SharesBurned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_burned_total",
			Help:      "Shares burned by benefit withdrawals, in whole share units",
		}),
		Management: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "management_actions_total",
			Help:      "Manager token actions, by type and result",
		}, []string{"type", "result"}),
		MembershipFlow: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_requests_total",
			Help:      "Membership requests, by outcome (submitted, approved, denied, cancelled)",
		}, []string{"outcome"}),
		Members: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members",
			Help:      "Current number of fund members",
		}),
		FundValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value",
			Help:      "Last recorded fund value in denomination units",
		}),
		ValueSnapshots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "value_snapshots_total",
			Help:      "Fund value snapshots recorded",
		}),
		RegistryFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_mirror_failures_total",
			Help:      "Registry notifications that failed after a committed change",
		}),
	}
}

type BoardMetrics struct {
	Motions     *prometheus.CounterVec
	Votes       *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Executions  *prometheus.CounterVec
	Directors   prometheus.Gauge
}

func NewBoardMetrics(reg prometheus.Registerer) *BoardMetrics {
	factory := promauto.With(reg)
	return &BoardMetrics{
		Motions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "motions_total",
			Help:      "Motions initiated, by motion type",
		}, []string{"type"}),
		Votes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "votes_total",
			Help:      "Votes cast, by vote",
		}, []string{"vote"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "motion_status_total",
			Help:      "Motion status transitions, by new status",
		}, []string{"status"}),
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "executions_total",
			Help:      "Motion executions, by motion type and result",
		}, []string{"type", "result"}),
		Directors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "directors",
			Help:      "Current number of directors",
		}),
	}
}
