// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
	log "github.com/luxfi/log"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/cache"
	"github.com/luxfi/omni/dvn"
	"github.com/luxfi/omni/endpoint"
	"github.com/luxfi/omni/events"
	"github.com/luxfi/omni/relayer/checkpoint"
	"github.com/luxfi/omni/utils"
)

const (
	// defaultSubmitTimeout bounds the retry loop for one delivery
	defaultSubmitTimeout = 10 * time.Second

	// subscriptionBuffer is the live-feed channel depth. A lagging relayer
	// misses live records and recovers by re-reading the log from its
	// checkpoint.
	subscriptionBuffer = 256

	// attestationCacheSize bounds the memoized attestation bundles
	attestationCacheSize = 1024
)

// Config parameterizes one Relayer
type Config struct {
	// SourceEvents is the event log of the ledger messages leave from
	SourceEvents *events.Log
	// DestChain filters the tail: only messages addressed to this ledger
	// are relayed
	DestChain omni.ChainID
	// Submitter delivers into the destination hub
	Submitter Submitter
	// Attestors sign each message before submission. May be empty when the
	// destination hub runs without a verifier.
	Attestors []*dvn.Attestor
	// Verifier, when set, pre-checks the attestation bundle so a doomed
	// submission never leaves the relayer
	Verifier endpoint.Verifier
	// StartSeq is the sequence number to resume tailing from
	StartSeq uint64
	// SubmitTimeout bounds the retry loop for one delivery, defaulting to
	// defaultSubmitTimeout
	SubmitTimeout time.Duration
	// Log defaults to a no-op logger when nil
	Log log.Logger
	// Metrics may be nil
	Metrics *Metrics
}

// Verify verifies the config
func (c *Config) Verify() error {
	switch {
	case c.SourceEvents == nil:
		return fmt.Errorf("%w: nil source event log", omni.ErrInvalidArgument)
	case c.DestChain == 0:
		return omni.ErrZeroChain
	case c.Submitter == nil:
		return fmt.Errorf("%w: nil submitter", omni.ErrInvalidArgument)
	default:
		return nil
	}
}

// Relayer tails one ledger's event log and delivers every message addressed
// to its destination chain. Delivery is at-least-once: a crashed relayer
// resumes from its checkpoint and redelivers, relying on the hub's replay
// guard to collapse duplicates.
type Relayer struct {
	sourceChain   omni.ChainID
	destChain     omni.ChainID
	sourceEvents  *events.Log
	submitter     Submitter
	attestors     []*dvn.Attestor
	verifier      endpoint.Verifier
	submitTimeout time.Duration
	log           log.Logger
	metrics       *Metrics

	checkpoint   *checkpoint.Manager
	attestations *cache.LRUCache[ids.ID, [][]byte]
}

// New creates a Relayer from cfg
func New(cfg Config) (*Relayer, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.NoLog{}
	}
	timeout := cfg.SubmitTimeout
	if timeout == 0 {
		timeout = defaultSubmitTimeout
	}
	return &Relayer{
		sourceChain:   cfg.SourceEvents.Chain(),
		destChain:     cfg.DestChain,
		sourceEvents:  cfg.SourceEvents,
		submitter:     cfg.Submitter,
		attestors:     cfg.Attestors,
		verifier:      cfg.Verifier,
		submitTimeout: timeout,
		log:           logger,
		metrics:       cfg.Metrics,
		checkpoint:    checkpoint.NewManager(logger, cfg.StartSeq),
		attestations:  cache.NewLRUCache[ids.ID, [][]byte](attestationCacheSize),
	}, nil
}

// Run tails the source event log until ctx is cancelled. Records appended
// before Run are processed first; afterwards the relayer follows the live
// feed, falling back to a log re-read whenever the feed drops a record.
func (r *Relayer) Run(ctx context.Context) error {
	feed, cancel := r.sourceEvents.Subscribe(subscriptionBuffer)
	defer cancel()

	r.catchUp(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-feed:
			if !ok {
				return nil
			}
			if rec.Seq > r.checkpoint.Committed() {
				// The feed dropped records; re-read the gap.
				r.catchUp(ctx)
				continue
			}
			r.process(ctx, rec)
		}
	}
}

// catchUp processes every record appended since the checkpoint
func (r *Relayer) catchUp(ctx context.Context) {
	for _, rec := range r.sourceEvents.Entries(r.checkpoint.Committed()) {
		if ctx.Err() != nil {
			return
		}
		r.process(ctx, rec)
	}
}

// process handles one record and stages its sequence number. Failures are
// logged and counted, never fatal: the message stays on the ledger and an
// operator can replay it.
func (r *Relayer) process(ctx context.Context, rec events.Record) {
	if rec.Seq < r.checkpoint.Committed() {
		return
	}
	defer r.checkpoint.StageProcessed(rec.Seq)

	sent, ok := rec.Event.(events.MessageSent)
	if !ok {
		return
	}
	if sent.Message.DestinationChain != r.destChain {
		return
	}

	if err := r.relay(ctx, sent); err != nil {
		r.log.Error("relay failed",
			log.Stringer("guid", sent.GUID),
			log.Uint64("seq", rec.Seq),
			log.Err(err),
		)
		if r.metrics != nil {
			r.metrics.failedRelayMessageCount.WithLabelValues(
				r.sourceChain.String(),
				r.destChain.String(),
				failureReason(err),
			).Inc()
		}
	}
}

// relay attests, verifies and submits one message
func (r *Relayer) relay(ctx context.Context, sent events.MessageSent) error {
	start := time.Now()
	msg := sent.Message

	attestations, err := r.attest(sent.GUID, msg.Payload)
	if err != nil {
		return err
	}

	if r.verifier != nil {
		verified, err := r.verifier.Verify(ctx, r.sourceChain, sent.GUID, msg.Payload, attestations)
		if err != nil {
			return err
		}
		if !verified {
			if r.metrics != nil {
				r.metrics.attestationRejectedCount.WithLabelValues(
					r.sourceChain.String(),
					r.destChain.String(),
				).Inc()
			}
			return fmt.Errorf("attestations rejected for %s", sent.GUID)
		}
	}

	err = utils.WithRetriesTimeout(r.log, func() error {
		err := r.submitter.Submit(ctx, r.sourceChain, sent.GUID, msg.Payload, msg.Receiver, sent.Fee)
		if errors.Is(err, omni.ErrReplay) {
			// Already on the destination ledger: at-least-once delivery
			// working as intended.
			r.log.Debug("message already delivered", log.Stringer("guid", sent.GUID))
			if r.metrics != nil {
				r.metrics.replayDroppedCount.WithLabelValues(
					r.sourceChain.String(),
					r.destChain.String(),
				).Inc()
			}
			return nil
		}
		return err
	}, r.submitTimeout)
	if err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.relayedMessageCount.WithLabelValues(
			r.sourceChain.String(),
			r.destChain.String(),
		).Inc()
		r.metrics.relayLatencyMS.WithLabelValues(
			r.sourceChain.String(),
			r.destChain.String(),
		).Set(float64(time.Since(start).Milliseconds()))
	}
	r.log.Info("message relayed",
		log.Stringer("guid", sent.GUID),
		log.Stringer("destChain", r.destChain),
	)
	return nil
}

// attest returns the attestation bundle for guid, collecting signatures from
// every configured attestor. Bundles are memoized so a retried relay does
// not re-sign.
func (r *Relayer) attest(guid ids.ID, payload []byte) ([][]byte, error) {
	if len(r.attestors) == 0 {
		return nil, nil
	}
	return r.attestations.Get(guid, func(ids.ID) ([][]byte, error) {
		bundle := make([][]byte, 0, len(r.attestors))
		for _, attestor := range r.attestors {
			sig, err := attestor.Attest(r.sourceChain, guid, payload)
			if err != nil {
				return nil, err
			}
			bundle = append(bundle, sig)
		}
		return bundle, nil
	}, false)
}

// Committed returns the next event sequence number the relayer has not
// processed
func (r *Relayer) Committed() uint64 {
	return r.checkpoint.Committed()
}

// failureReason maps an error to a bounded metric label
func failureReason(err error) string {
	switch {
	case errors.Is(err, omni.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, omni.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, omni.ErrPaused):
		return "paused"
	case errors.Is(err, omni.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "other"
	}
}
