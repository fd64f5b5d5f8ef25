// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	relayedMessageCount      *prometheus.CounterVec
	failedRelayMessageCount  *prometheus.CounterVec
	replayDroppedCount       *prometheus.CounterVec
	attestationRejectedCount *prometheus.CounterVec
	relayLatencyMS           *prometheus.GaugeVec
	deliveredMessageCount    *prometheus.CounterVec
	duplicateDeliveryCount   *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		relayedMessageCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relayed_message_count",
				Help: "Number of messages that relayed successfully",
			},
			[]string{"source_chain_id", "destination_chain_id"},
		),
		failedRelayMessageCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "failed_relay_message_count",
				Help: "Number of messages that failed to relay",
			},
			[]string{"source_chain_id", "destination_chain_id", "failure_reason"},
		),
		replayDroppedCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replay_dropped_count",
				Help: "Number of redelivered messages dropped as already executed",
			},
			[]string{"source_chain_id", "destination_chain_id"},
		),
		attestationRejectedCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attestation_rejected_count",
				Help: "Number of messages whose attestations failed verification",
			},
			[]string{"source_chain_id", "destination_chain_id"},
		),
		relayLatencyMS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "relay_latency_ms",
				Help: "Latency of relaying a message end to end in milliseconds",
			},
			[]string{"source_chain_id", "destination_chain_id"},
		),
		deliveredMessageCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivered_message_count",
				Help: "Number of messages the executor delivered to an application",
			},
			[]string{"destination_chain_id"},
		),
		duplicateDeliveryCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "duplicate_delivery_count",
				Help: "Number of deliveries the executor refused as duplicates",
			},
			[]string{"destination_chain_id"},
		),
	}

	registerer.MustRegister(m.relayedMessageCount)
	registerer.MustRegister(m.failedRelayMessageCount)
	registerer.MustRegister(m.replayDroppedCount)
	registerer.MustRegister(m.attestationRejectedCount)
	registerer.MustRegister(m.relayLatencyMS)
	registerer.MustRegister(m.deliveredMessageCount)
	registerer.MustRegister(m.duplicateDeliveryCount)

	return &m
}
