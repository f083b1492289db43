// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	runningSessions *prometheus.GaugeVec
	tradesExecuted  prometheus.Counter
	tradesSucceeded prometheus.Counter
	tradesFailed    prometheus.Counter
	volumeSol       prometheus.Counter
	fundedLamports  prometheus.Counter
	sweptLamports   prometheus.Counter
}

func newMetrics(namespace string, registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		runningSessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "running_sessions",
				Help:      "Number of running sessions per kind",
			},
			[]string{"kind"},
		),
		tradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed",
			Help:      "Trade loop iterations that attempted a trade",
		}),
		tradesSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_succeeded",
			Help:      "Trades that confirmed successfully",
		}),
		tradesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_failed",
			Help:      "Trades that failed or were skipped on pre-checks",
		}),
		volumeSol: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volume_sol",
			Help:      "Native volume traded across all sessions, in SOL",
		}),
		fundedLamports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "funded_lamports",
			Help:      "Lamports sent from the treasury to session wallets",
		}),
		sweptLamports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_lamports",
			Help:      "Lamports swept from session wallets back to the treasury",
		}),
	}

	err := errors.Join(
		registerer.Register(m.runningSessions),
		registerer.Register(m.tradesExecuted),
		registerer.Register(m.tradesSucceeded),
		registerer.Register(m.tradesFailed),
		registerer.Register(m.volumeSol),
		registerer.Register(m.fundedLamports),
		registerer.Register(m.sweptLamports),
	)
	return m, err
}
