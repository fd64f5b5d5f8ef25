// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package app implements the application layer above the message hub. An App
// owns a peer table mapping remote chains to the trusted counterpart
// identifier, a sender role set, a pause switch and its own executed set,
// and dispatches delivered payloads to a registered handler.
package app

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
	"github.com/luxfi/omni/events"
)

var (
	ErrNotAdmin          = fmt.Errorf("%w: caller is not the application admin", omni.ErrUnauthorized)
	ErrNotSender         = fmt.Errorf("%w: caller lacks the sender role", omni.ErrUnauthorized)
	ErrNotHub            = fmt.Errorf("%w: caller is not the message hub", omni.ErrUnauthorized)
	ErrUntrustedPeer     = fmt.Errorf("%w: delivery from untrusted peer path", omni.ErrUnauthorized)
	ErrNoPeer            = fmt.Errorf("%w: no peer for chain", omni.ErrNotConfigured)
	ErrExecuted          = fmt.Errorf("%w: duplicate delivery", omni.ErrReplay)
	ErrZeroPeer          = fmt.Errorf("%w: peer is the zero identifier", omni.ErrInvalidArgument)
	ErrZeroAccount       = fmt.Errorf("%w: zero account", omni.ErrInvalidArgument)
	ErrInsufficientValue = fmt.Errorf("%w: attached value below fee", omni.ErrInvalidArgument)
)

// Handler consumes delivered payloads. Implementations run inside the
// application's re-entrancy guard: calling back into Send or Receive from
// HandleMessage fails rather than recursing.
type Handler interface {
	HandleMessage(ctx context.Context, originChain omni.ChainID, guid ids.ID, payload []byte) error
}

// HandlerFunc adapts a function into a Handler
type HandlerFunc func(ctx context.Context, originChain omni.ChainID, guid ids.ID, payload []byte) error

func (f HandlerFunc) HandleMessage(ctx context.Context, originChain omni.ChainID, guid ids.ID, payload []byte) error {
	return f(ctx, originChain, guid, payload)
}

type noopHandler struct{}

func (noopHandler) HandleMessage(context.Context, omni.ChainID, ids.ID, []byte) error {
	return nil
}

// Config parameterizes one App
type Config struct {
	// Endpoint is the ledger's message hub
	Endpoint *endpoint.Endpoint
	// Address is the application's native account. The chain-agnostic
	// identifier carried in envelopes is derived from it.
	Address common.Address
	// Admin manages the peer table, the sender role and the pause switch
	Admin common.Address
	// Handler consumes delivered payloads, defaults to a no-op
	Handler Handler
	// Guard is the re-entrancy guard. Leave nil for a private guard; pass
	// a shared one when another component guards the same call chain.
	Guard *omni.CallGuard
	// Log defaults to a no-op logger when nil
	Log log.Logger
	// Events is the ledger's append-only event log
	Events *events.Log
}

// Verify verifies the config
func (c *Config) Verify() error {
	switch {
	case c.Endpoint == nil:
		return fmt.Errorf("%w: nil endpoint", omni.ErrInvalidArgument)
	case omni.IsZeroAddress(c.Address):
		return fmt.Errorf("%w: zero application address", omni.ErrInvalidArgument)
	case omni.IsZeroAddress(c.Admin):
		return fmt.Errorf("%w: zero admin address", omni.ErrInvalidArgument)
	case c.Events == nil:
		return fmt.Errorf("%w: nil event log", omni.ErrInvalidArgument)
	default:
		return nil
	}
}

// App is one application instance bound to a message hub
type App struct {
	hub     *endpoint.Endpoint
	address common.Address
	id      ids.ID
	admin   common.Address
	handler Handler
	guard   *omni.CallGuard
	log     log.Logger
	events  *events.Log

	lock     sync.RWMutex
	peers    map[omni.ChainID]ids.ID
	senders  set.Set[common.Address]
	executed set.Set[ids.ID]
	paused   bool
}

// New creates an App bound to cfg.Endpoint
func New(cfg Config) (*App, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	handler := cfg.Handler
	if handler == nil {
		handler = noopHandler{}
	}
	guard := cfg.Guard
	if guard == nil {
		guard = &omni.CallGuard{}
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.NoLog{}
	}
	return &App{
		hub:      cfg.Endpoint,
		address:  cfg.Address,
		id:       omni.AddressToID(cfg.Address),
		admin:    cfg.Admin,
		handler:  handler,
		guard:    guard,
		log:      logger,
		events:   cfg.Events,
		peers:    make(map[omni.ChainID]ids.ID),
		senders:  set.Set[common.Address]{},
		executed: set.Set[ids.ID]{},
	}, nil
}

// Send forwards payload to the trusted peer on destChain through the hub.
// The caller must hold the sender role, the instance must not be paused, a
// peer must be configured for destChain and value must cover fee. The
// re-entrancy guard is held for the duration, so a nested send during
// delivery of an inbound message fails.
func (a *App) Send(
	ctx context.Context,
	caller common.Address,
	destChain omni.ChainID,
	payload []byte,
	fee uint64,
	value uint64,
) (ids.ID, error) {
	if err := a.guard.Enter(); err != nil {
		return ids.ID{}, err
	}
	defer a.guard.Exit()

	a.lock.RLock()
	isSender := a.senders.Contains(caller)
	paused := a.paused
	peer, hasPeer := a.peers[destChain]
	a.lock.RUnlock()

	switch {
	case !isSender:
		return ids.ID{}, fmt.Errorf("%w: %s", ErrNotSender, caller)
	case paused:
		return ids.ID{}, omni.ErrPaused
	case !hasPeer:
		return ids.ID{}, fmt.Errorf("%w %s", ErrNoPeer, destChain)
	case value < fee:
		return ids.ID{}, fmt.Errorf("%w: value %d < fee %d", ErrInsufficientValue, value, fee)
	}

	msg, err := a.hub.Send(ctx, a.id, destChain, peer, payload, value)
	if err != nil {
		return ids.ID{}, err
	}
	guid := msg.GUID()

	a.log.Debug("application sent",
		log.Stringer("destChain", destChain),
		log.Stringer("caller", caller),
		log.Stringer("guid", guid),
	)
	a.events.Append(events.AppSent{
		App:       a.id,
		DestChain: destChain,
		GUID:      guid,
	})
	return guid, nil
}

// Receive accepts a delivery from the hub and dispatches the payload to the
// registered handler. Only the hub's native account may call. The guid is
// checked against the application's own executed set, independent of the
// hub's, and the trusted peer for originChain must equal this application's
// own identifier: peer tables are configured mirror-image on both ledgers,
// so a correctly paired counterpart records the same identifier this side
// derives for itself. The executed mark is permanent even when the handler
// fails.
func (a *App) Receive(
	ctx context.Context,
	caller common.Address,
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
) error {
	if caller != a.hub.Address() {
		return fmt.Errorf("%w: %s", ErrNotHub, caller)
	}
	if err := a.guard.Enter(); err != nil {
		return err
	}
	defer a.guard.Exit()

	a.lock.Lock()
	if a.paused {
		a.lock.Unlock()
		return omni.ErrPaused
	}
	if a.executed.Contains(guid) {
		a.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrExecuted, guid)
	}
	if peer, ok := a.peers[originChain]; !ok || peer != a.id {
		a.lock.Unlock()
		return fmt.Errorf("%w: origin chain %s", ErrUntrustedPeer, originChain)
	}
	a.executed.Add(guid)
	a.lock.Unlock()

	if err := a.handler.HandleMessage(ctx, originChain, guid, payload); err != nil {
		a.log.Error("payload handler failed",
			log.Stringer("originChain", originChain),
			log.Stringer("guid", guid),
			log.Err(err),
		)
		return err
	}

	a.log.Debug("application received",
		log.Stringer("originChain", originChain),
		log.Stringer("guid", guid),
	)
	a.events.Append(events.AppReceived{
		App:         a.id,
		OriginChain: originChain,
		GUID:        guid,
	})
	return nil
}

// SetPeer binds the trusted counterpart identifier for chain. Admin only;
// the write is unconditional so peers can be rotated.
func (a *App) SetPeer(caller common.Address, chain omni.ChainID, peer ids.ID) error {
	if caller != a.admin {
		return ErrNotAdmin
	}
	if chain == 0 {
		return omni.ErrZeroChain
	}
	if omni.IsZeroID(peer) {
		return ErrZeroPeer
	}

	a.lock.Lock()
	a.peers[chain] = peer
	a.lock.Unlock()

	a.log.Info("peer set",
		log.Stringer("chain", chain),
		log.Stringer("peer", peer),
	)
	a.events.Append(events.PeerSet{
		App:   a.id,
		Chain: chain,
		Peer:  peer,
	})
	return nil
}

// GrantSender adds account to the sender role. Admin only.
func (a *App) GrantSender(caller common.Address, account common.Address) error {
	if caller != a.admin {
		return ErrNotAdmin
	}
	if omni.IsZeroAddress(account) {
		return ErrZeroAccount
	}

	a.lock.Lock()
	a.senders.Add(account)
	a.lock.Unlock()

	a.events.Append(events.SenderGranted{
		App:     a.id,
		Account: account,
	})
	return nil
}

// RevokeSender removes account from the sender role. Admin only; revoking a
// non-member is a no-op.
func (a *App) RevokeSender(caller common.Address, account common.Address) error {
	if caller != a.admin {
		return ErrNotAdmin
	}

	a.lock.Lock()
	a.senders.Remove(account)
	a.lock.Unlock()

	a.events.Append(events.SenderRevoked{
		App:     a.id,
		Account: account,
	})
	return nil
}

// Pause stops Send and Receive until Unpause. Admin only; pausing a paused
// instance is a no-op. Reads stay available while paused.
func (a *App) Pause(caller common.Address) error {
	if caller != a.admin {
		return ErrNotAdmin
	}

	a.lock.Lock()
	if a.paused {
		a.lock.Unlock()
		return nil
	}
	a.paused = true
	a.lock.Unlock()

	a.log.Info("application paused")
	a.events.Append(events.Paused{App: a.id})
	return nil
}

// Unpause re-enables Send and Receive. Admin only; unpausing a running
// instance is a no-op.
func (a *App) Unpause(caller common.Address) error {
	if caller != a.admin {
		return ErrNotAdmin
	}

	a.lock.Lock()
	if !a.paused {
		a.lock.Unlock()
		return nil
	}
	a.paused = false
	a.lock.Unlock()

	a.log.Info("application unpaused")
	a.events.Append(events.Unpaused{App: a.id})
	return nil
}

// Peer returns the trusted counterpart identifier for chain
func (a *App) Peer(chain omni.ChainID) (ids.ID, bool) {
	a.lock.RLock()
	defer a.lock.RUnlock()

	peer, ok := a.peers[chain]
	return peer, ok
}

// Executed reports whether guid has been delivered to this application
func (a *App) Executed(guid ids.ID) bool {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.executed.Contains(guid)
}

// Paused reports whether the instance is paused
func (a *App) Paused() bool {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.paused
}

// IsSender reports whether account holds the sender role
func (a *App) IsSender(account common.Address) bool {
	a.lock.RLock()
	defer a.lock.RUnlock()

	return a.senders.Contains(account)
}

// ID returns the application's chain-agnostic identifier
func (a *App) ID() ids.ID {
	return a.id
}

// Address returns the application's native account
func (a *App) Address() common.Address {
	return a.address
}

// Admin returns the application's administrative account
func (a *App) Admin() common.Address {
	return a.admin
}
