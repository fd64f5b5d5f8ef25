// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package endpoint implements the per-ledger message hub. Every cross-chain
// message leaves its source ledger and enters its destination ledger through
// an Endpoint: sends assign per-sender nonces and a globally unique message
// identifier, receives enforce exactly-once execution before handing the
// payload to the delivery agent registered for the origin chain.
package endpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/events"
)

var (
	ErrNotOwner    = fmt.Errorf("%w: caller is not the hub owner", omni.ErrUnauthorized)
	ErrExecuted    = fmt.Errorf("%w: duplicate delivery", omni.ErrReplay)
	ErrNoAgent     = fmt.Errorf("%w: no delivery agent for origin chain", omni.ErrNotConfigured)
	ErrNilAgent    = fmt.Errorf("%w: nil delivery agent", omni.ErrInvalidArgument)
	ErrNilVerifier = fmt.Errorf("%w: nil verifier", omni.ErrInvalidArgument)
	ErrZeroMin     = fmt.Errorf("%w: zero verification threshold", omni.ErrInvalidArgument)
)

// DeliveryAgent executes a delivered message on behalf of the hub. The hub
// calls Execute synchronously during Receive, after the message identifier
// has been recorded as executed. Agents authorize themselves and keep their
// own idempotence guard.
type DeliveryAgent interface {
	Execute(
		ctx context.Context,
		originChain omni.ChainID,
		guid ids.ID,
		payload []byte,
		receiver ids.ID,
		fee uint64,
	) error
}

// Verifier checks attestations over a message before a relay submits it for
// execution. A failed check returns false, never an error a caller could
// mistake for success.
type Verifier interface {
	Verify(
		ctx context.Context,
		originChain omni.ChainID,
		guid ids.ID,
		payload []byte,
		attestations [][]byte,
	) (bool, error)
}

// Config parameterizes one Endpoint
type Config struct {
	// ChainID is the ledger this hub serves
	ChainID omni.ChainID
	// Address is the hub's native account. Applications accept deliveries
	// only from this address.
	Address common.Address
	// Owner may rebind delivery agents and verifiers
	Owner common.Address
	// Log defaults to a no-op logger when nil
	Log log.Logger
	// Events is the ledger's append-only event log
	Events *events.Log
	// Clock stamps outbound envelopes, defaults to the wall clock
	Clock func() uint64
}

// Verify verifies the config
func (c *Config) Verify() error {
	switch {
	case c.ChainID == 0:
		return omni.ErrZeroChain
	case omni.IsZeroAddress(c.Address):
		return fmt.Errorf("%w: zero hub address", omni.ErrInvalidArgument)
	case omni.IsZeroAddress(c.Owner):
		return fmt.Errorf("%w: zero owner address", omni.ErrInvalidArgument)
	case c.Events == nil:
		return fmt.Errorf("%w: nil event log", omni.ErrInvalidArgument)
	default:
		return nil
	}
}

// Endpoint is the message hub of one ledger. All state lives behind a single
// lock; operations are atomic and serial with respect to this ledger. The
// lock is never held across a call into a delivery agent.
type Endpoint struct {
	chainID omni.ChainID
	address common.Address
	owner   common.Address
	log     log.Logger
	events  *events.Log
	clock   func() uint64

	lock             sync.RWMutex
	nonces           map[ids.ID]uint64
	executed         set.Set[ids.ID]
	outbox           map[ids.ID]*omni.Message
	agents           map[omni.ChainID]DeliveryAgent
	verifiers        map[omni.ChainID]Verifier
	minVerifications uint64
	collectedFees    uint64
}

// New creates an Endpoint for one ledger
func New(cfg Config) (*Endpoint, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.NoLog{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = func() uint64 {
			return uint64(time.Now().Unix())
		}
	}
	return &Endpoint{
		chainID:          cfg.ChainID,
		address:          cfg.Address,
		owner:            cfg.Owner,
		log:              logger,
		events:           cfg.Events,
		clock:            clock,
		nonces:           make(map[ids.ID]uint64),
		executed:         set.Set[ids.ID]{},
		outbox:           make(map[ids.ID]*omni.Message),
		agents:           make(map[omni.ChainID]DeliveryAgent),
		verifiers:        make(map[omni.ChainID]Verifier),
		minVerifications: 1,
	}, nil
}

// Send accepts an outbound message from sender and assigns it the sender's
// next nonce (post-increment: the envelope carries the value before the
// advance). The envelope is recorded in the outbox so relays can re-fetch it
// after a crash; value accrues to the collected fees. A rejected send
// changes no state.
func (e *Endpoint) Send(
	ctx context.Context,
	sender ids.ID,
	destChain omni.ChainID,
	receiver ids.ID,
	payload []byte,
	value uint64,
) (*omni.Message, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	nonce := e.nonces[sender]
	msg, err := omni.NewMessage(e.chainID, destChain, sender, receiver, nonce, e.clock(), payload)
	if err != nil {
		return nil, err
	}
	fees, err := omni.AddUint64(e.collectedFees, value)
	if err != nil {
		return nil, err
	}

	guid := msg.GUID()
	e.nonces[sender] = nonce + 1
	e.outbox[guid] = msg
	e.collectedFees = fees

	e.log.Debug("message sent",
		log.Stringer("destChain", destChain),
		log.Stringer("sender", sender),
		log.Uint64("nonce", nonce),
		log.Stringer("guid", guid),
	)
	e.events.Append(events.MessageSent{
		Message: msg,
		GUID:    guid,
		Fee:     value,
	})
	return msg, nil
}

// Receive delivers a message into this ledger. The identifier is recorded as
// executed before the delivery agent runs, so a reentrant call during
// dispatch cannot deliver the same message twice. The record is permanent:
// it survives a failed agent, and any later attempt for the same identifier
// fails with a replay error.
func (e *Endpoint) Receive(
	ctx context.Context,
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
	receiver ids.ID,
	fee uint64,
) error {
	switch {
	case originChain == 0:
		return omni.ErrZeroChain
	case originChain == e.chainID:
		return omni.ErrSameChain
	case omni.IsZeroID(receiver):
		return omni.ErrZeroReceiver
	}

	e.lock.Lock()
	if e.executed.Contains(guid) {
		e.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrExecuted, guid)
	}
	agent, ok := e.agents[originChain]
	if !ok {
		e.lock.Unlock()
		return fmt.Errorf("%w %s", ErrNoAgent, originChain)
	}
	e.executed.Add(guid)
	e.lock.Unlock()

	if err := agent.Execute(ctx, originChain, guid, payload, receiver, fee); err != nil {
		e.log.Error("delivery agent failed",
			log.Stringer("originChain", originChain),
			log.Stringer("guid", guid),
			log.Err(err),
		)
		return err
	}

	e.log.Debug("message delivered",
		log.Stringer("originChain", originChain),
		log.Stringer("guid", guid),
		log.Stringer("receiver", receiver),
	)
	e.events.Append(events.MessageDelivered{
		OriginChain: originChain,
		GUID:        guid,
		Receiver:    receiver,
	})
	return nil
}

// SetDeliveryAgent rebinds the delivery agent for messages arriving from
// originChain. Owner only; the last write wins.
func (e *Endpoint) SetDeliveryAgent(caller common.Address, originChain omni.ChainID, agent DeliveryAgent) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	if originChain == 0 {
		return omni.ErrZeroChain
	}
	if agent == nil {
		return ErrNilAgent
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.agents[originChain] = agent
	e.log.Info("delivery agent registered", log.Stringer("originChain", originChain))
	return nil
}

// SetVerifier rebinds the verifier consulted for messages arriving from
// originChain. Owner only; the last write wins.
func (e *Endpoint) SetVerifier(caller common.Address, originChain omni.ChainID, verifier Verifier) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	if originChain == 0 {
		return omni.ErrZeroChain
	}
	if verifier == nil {
		return ErrNilVerifier
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.verifiers[originChain] = verifier
	e.log.Info("verifier registered", log.Stringer("originChain", originChain))
	return nil
}

// SetMinVerifications rebinds the number of independent attestations a relay
// must gather before submitting a delivery. Owner only.
func (e *Endpoint) SetMinVerifications(caller common.Address, n uint64) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	if n == 0 {
		return ErrZeroMin
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.minVerifications = n
	e.log.Info("verification threshold updated", log.Uint64("minVerifications", n))
	return nil
}

// OutboundNonce returns the nonce the next message from sender will carry
func (e *Endpoint) OutboundNonce(sender ids.ID) uint64 {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.nonces[sender]
}

// Executed reports whether guid has been delivered on this ledger
func (e *Endpoint) Executed(guid ids.ID) bool {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.executed.Contains(guid)
}

// SentMessage returns the outbox entry recorded for guid
func (e *Endpoint) SentMessage(guid ids.ID) (*omni.Message, bool) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	msg, ok := e.outbox[guid]
	return msg, ok
}

// CollectedFees returns the total value accepted by Send
func (e *Endpoint) CollectedFees() uint64 {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.collectedFees
}

// MinVerifications returns the attestation threshold for inbound deliveries
func (e *Endpoint) MinVerifications() uint64 {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.minVerifications
}

// Verifier returns the verifier registered for originChain
func (e *Endpoint) Verifier(originChain omni.ChainID) (Verifier, bool) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	v, ok := e.verifiers[originChain]
	return v, ok
}

// ChainID returns the ledger this hub serves
func (e *Endpoint) ChainID() omni.ChainID {
	return e.chainID
}

// Address returns the hub's native account
func (e *Endpoint) Address() common.Address {
	return e.address
}

// Owner returns the hub's administrative account
func (e *Endpoint) Owner() common.Address {
	return e.owner
}
