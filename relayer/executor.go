// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer moves messages between ledgers: the Relayer tails the
// source ledger's event log, collects attestations, and submits deliveries to
// the destination hub; the Executor dispatches delivered payloads to the
// registered application, keeping its own exactly-once record on top of the
// hub's.
package relayer

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/endpoint"
)

var _ endpoint.DeliveryAgent = (*Executor)(nil)

var (
	ErrDelivered       = fmt.Errorf("%w: executor already delivered", omni.ErrReplay)
	ErrUnknownReceiver = fmt.Errorf("%w: no application for receiver", omni.ErrNotConfigured)
	ErrNilApp          = fmt.Errorf("%w: nil application", omni.ErrInvalidArgument)
)

// Application is the destination of an executed delivery. *app.App satisfies
// it.
type Application interface {
	Receive(
		ctx context.Context,
		caller common.Address,
		originChain omni.ChainID,
		guid ids.ID,
		payload []byte,
	) error
}

// Executor dispatches delivered messages to applications registered by their
// chain-agnostic identifier. It calls the application as the hub, and keeps
// its own executed set independent of the hub's, so a duplicate slipping past
// one layer still stops at the other.
type Executor struct {
	chainID    omni.ChainID
	hubAddress common.Address
	log        log.Logger
	metrics    *Metrics

	lock     sync.RWMutex
	apps     map[ids.ID]Application
	executed set.Set[ids.ID]
}

// NewExecutor creates an Executor delivering on behalf of the hub at
// hubAddress. Metrics may be nil.
func NewExecutor(
	chainID omni.ChainID,
	hubAddress common.Address,
	logger log.Logger,
	metrics *Metrics,
) (*Executor, error) {
	if chainID == 0 {
		return nil, omni.ErrZeroChain
	}
	if omni.IsZeroAddress(hubAddress) {
		return nil, fmt.Errorf("%w: zero hub address", omni.ErrInvalidArgument)
	}
	if logger == nil {
		logger = log.NoLog{}
	}
	return &Executor{
		chainID:    chainID,
		hubAddress: hubAddress,
		log:        logger,
		metrics:    metrics,
		apps:       make(map[ids.ID]Application),
		executed:   set.Set[ids.ID]{},
	}, nil
}

// RegisterApp binds the application reachable as receiver. The last write
// wins.
func (e *Executor) RegisterApp(receiver ids.ID, target Application) error {
	if omni.IsZeroID(receiver) {
		return omni.ErrZeroReceiver
	}
	if target == nil {
		return ErrNilApp
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.apps[receiver] = target
	e.log.Info("application registered", log.Stringer("receiver", receiver))
	return nil
}

// Execute dispatches one delivery to the application registered for receiver.
// The identifier is recorded as executed before the application runs and the
// record is permanent, matching the hub's own guard.
func (e *Executor) Execute(
	ctx context.Context,
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
	receiver ids.ID,
	fee uint64,
) error {
	if omni.IsZeroID(receiver) {
		return omni.ErrZeroReceiver
	}

	e.lock.Lock()
	if e.executed.Contains(guid) {
		e.lock.Unlock()
		if e.metrics != nil {
			e.metrics.duplicateDeliveryCount.WithLabelValues(e.chainID.String()).Inc()
		}
		return fmt.Errorf("%w: %s", ErrDelivered, guid)
	}
	target, ok := e.apps[receiver]
	if !ok {
		e.lock.Unlock()
		return fmt.Errorf("%w %s", ErrUnknownReceiver, receiver)
	}
	e.executed.Add(guid)
	e.lock.Unlock()

	if err := target.Receive(ctx, e.hubAddress, originChain, guid, payload); err != nil {
		e.log.Error("application receive failed",
			log.Stringer("originChain", originChain),
			log.Stringer("guid", guid),
			log.Stringer("receiver", receiver),
			log.Err(err),
		)
		return err
	}

	if e.metrics != nil {
		e.metrics.deliveredMessageCount.WithLabelValues(e.chainID.String()).Inc()
	}
	e.log.Debug("delivery executed",
		log.Stringer("originChain", originChain),
		log.Stringer("guid", guid),
		log.Stringer("receiver", receiver),
		log.Uint64("fee", fee),
	)
	return nil
}

// Delivered reports whether the executor has dispatched guid
func (e *Executor) Delivered(guid ids.ID) bool {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.executed.Contains(guid)
}
