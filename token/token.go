// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token implements a fungible token bridged across ledgers with
// burn-and-mint semantics. Sending burns from the source balance before the
// envelope leaves; the destination instance mints after the usual delivery
// checks plus its own minted-set guard, the last line of defense against
// double-crediting.
package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/app"
	"github.com/luxfi/omni/endpoint"
	"github.com/luxfi/omni/events"
	"github.com/luxfi/omni/payload"
)

var (
	ErrNotAdmin            = fmt.Errorf("%w: caller is not the token admin", omni.ErrUnauthorized)
	ErrNotHub              = fmt.Errorf("%w: caller is not the message hub", omni.ErrUnauthorized)
	ErrMinted              = fmt.Errorf("%w: transfer already minted", omni.ErrReplay)
	ErrZeroAccount         = fmt.Errorf("%w: zero account", omni.ErrInvalidArgument)
	ErrZeroAmount          = fmt.Errorf("%w: amount is zero", omni.ErrInvalidArgument)
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", omni.ErrInvalidArgument)
	ErrSupplyOverflow      = fmt.Errorf("%w: total supply overflow", omni.ErrInvalidArgument)
	ErrUnexpectedPayload   = fmt.Errorf("%w: unexpected payload type", omni.ErrInvalidArgument)
)

// Config parameterizes one Token
type Config struct {
	// Endpoint is the ledger's message hub
	Endpoint *endpoint.Endpoint
	// Address is the token's native account, shared with its application
	Address common.Address
	// Admin manages issuance and the application's peer table
	Admin common.Address
	// Name, Symbol and Decimals describe the asset
	Name     string
	Symbol   string
	Decimals uint8
	// Log defaults to a no-op logger when nil
	Log log.Logger
	// Events is the ledger's append-only event log
	Events *events.Log
}

// Token is one ledger's instance of the bridged asset. It owns an App bound
// to the hub and registers itself as the app's payload handler, so inbound
// transfers pass the hub's executed set, the app's executed set and the
// token's minted set before any balance is credited.
type Token struct {
	app      *app.App
	guard    *omni.CallGuard
	hubAddr  common.Address
	address  common.Address
	admin    common.Address
	name     string
	symbol   string
	decimals uint8
	log      log.Logger
	events   *events.Log

	lock        sync.RWMutex
	balances    map[common.Address]*uint256.Int
	totalSupply *uint256.Int
	minted      set.Set[ids.ID]
}

// handler adapts the token into the app's payload handler without exposing
// an ungated mint path on Token itself.
type handler struct {
	t *Token
}

var _ app.Handler = (*handler)(nil)

func (h *handler) HandleMessage(ctx context.Context, originChain omni.ChainID, guid ids.ID, raw []byte) error {
	p, err := payload.Parse(raw)
	if err != nil {
		return err
	}
	xfer, ok := p.(*payload.Transfer)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedPayload, p)
	}
	to, err := omni.IDToAddress(xfer.To)
	if err != nil {
		return err
	}
	// The application verified the hub caller and holds the shared guard
	// for the duration of this dispatch, so the mint skips straight to the
	// token's own checks.
	return h.t.receiveTokens(ctx, originChain, guid, to, xfer.Amount)
}

// New creates a Token and its application bound to cfg.Endpoint
func New(cfg Config) (*Token, error) {
	logger := cfg.Log
	if logger == nil {
		logger = log.NoLog{}
	}
	t := &Token{
		guard:       &omni.CallGuard{},
		address:     cfg.Address,
		admin:       cfg.Admin,
		name:        cfg.Name,
		symbol:      cfg.Symbol,
		decimals:    cfg.Decimals,
		log:         logger,
		events:      cfg.Events,
		balances:    make(map[common.Address]*uint256.Int),
		totalSupply: new(uint256.Int),
		minted:      set.Set[ids.ID]{},
	}

	a, err := app.New(app.Config{
		Endpoint: cfg.Endpoint,
		Address:  cfg.Address,
		Admin:    cfg.Admin,
		Handler:  &handler{t: t},
		Guard:    t.guard,
		Log:      logger,
		Events:   cfg.Events,
	})
	if err != nil {
		return nil, err
	}
	t.app = a
	t.hubAddr = cfg.Endpoint.Address()
	return t, nil
}

// Mint issues amount to account. Admin only; the supply entry point for the
// cross-ledger conservation argument, every bridged mint elsewhere traces
// back to an issuance here.
func (t *Token) Mint(caller common.Address, to common.Address, amount *uint256.Int) error {
	if caller != t.admin {
		return ErrNotAdmin
	}
	if omni.IsZeroAddress(to) {
		return ErrZeroAccount
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if err := t.guard.Enter(); err != nil {
		return err
	}
	defer t.guard.Exit()
	if t.app.Paused() {
		return omni.ErrPaused
	}

	t.lock.Lock()
	if err := t.credit(to, amount); err != nil {
		t.lock.Unlock()
		return err
	}
	t.lock.Unlock()

	t.log.Info("tokens minted",
		log.Stringer("to", to),
		log.Stringer("amount", amount),
	)
	t.events.Append(events.Mint{
		Token:  t.address,
		To:     to,
		Amount: new(uint256.Int).Set(amount),
	})
	return nil
}

// Transfer moves amount from caller to another account on this ledger.
// Blocked while the application is paused and while a guarded call is in
// flight: the guard is shared with the application, so a payload handler
// cannot move balances mid-delivery.
func (t *Token) Transfer(ctx context.Context, caller common.Address, to common.Address, amount *uint256.Int) error {
	if omni.IsZeroAddress(to) {
		return ErrZeroAccount
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if err := t.guard.Enter(); err != nil {
		return err
	}
	defer t.guard.Exit()
	if t.app.Paused() {
		return omni.ErrPaused
	}

	t.lock.Lock()
	if err := t.debit(caller, amount); err != nil {
		t.lock.Unlock()
		return err
	}
	t.creditBalance(to, amount)
	t.lock.Unlock()

	t.events.Append(events.Transfer{
		Token:  t.address,
		From:   caller,
		To:     to,
		Amount: new(uint256.Int).Set(amount),
	})
	return nil
}

// Send burns amount from the caller and forwards a transfer payload to the
// token's peer on destChain. The burn happens before the envelope is built;
// if the downstream send fails for any reason the burn rolls back in full,
// so tokens are never both burned and unsent.
func (t *Token) Send(
	ctx context.Context,
	caller common.Address,
	destChain omni.ChainID,
	to ids.ID,
	amount *uint256.Int,
	fee uint64,
	value uint64,
) (ids.ID, error) {
	xfer, err := payload.NewTransfer(to, amount)
	if err != nil {
		return ids.ID{}, err
	}
	if value < fee {
		return ids.ID{}, fmt.Errorf("%w: value %d < fee %d", app.ErrInsufficientValue, value, fee)
	}

	t.lock.Lock()
	if err := t.debit(caller, amount); err != nil {
		t.lock.Unlock()
		return ids.ID{}, err
	}
	t.totalSupply.Sub(t.totalSupply, amount)
	t.lock.Unlock()

	guid, err := t.app.Send(ctx, caller, destChain, xfer.Bytes(), fee, value)
	if err != nil {
		t.lock.Lock()
		t.creditBalance(caller, amount)
		t.totalSupply.Add(t.totalSupply, amount)
		t.lock.Unlock()
		return ids.ID{}, err
	}

	t.log.Debug("tokens sent",
		log.Stringer("destChain", destChain),
		log.Stringer("from", caller),
		log.Stringer("to", to),
		log.Stringer("amount", amount),
		log.Stringer("guid", guid),
	)
	t.events.Append(events.TokensSent{
		Token:     t.address,
		DestChain: destChain,
		From:      caller,
		To:        to,
		Amount:    new(uint256.Int).Set(amount),
		GUID:      guid,
	})
	return guid, nil
}

// ReceiveTokens mints amount to a native account for a bridged transfer.
// Only the hub's native address may call; the legitimate path runs hub ->
// delivery agent -> app -> handler instead, which mints under the guard the
// application already holds. Blocked while paused, like every other balance
// mutation. The minted set is the token's own replay guard, independent of
// the hub's and the app's executed sets.
func (t *Token) ReceiveTokens(
	ctx context.Context,
	caller common.Address,
	originChain omni.ChainID,
	guid ids.ID,
	to common.Address,
	amount *uint256.Int,
) error {
	if caller != t.hubAddr {
		return fmt.Errorf("%w: %s", ErrNotHub, caller)
	}
	if err := t.guard.Enter(); err != nil {
		return err
	}
	defer t.guard.Exit()

	return t.receiveTokens(ctx, originChain, guid, to, amount)
}

// receiveTokens is the mint path shared by the direct entry point and the
// payload handler. Callers hold the guard.
func (t *Token) receiveTokens(
	ctx context.Context,
	originChain omni.ChainID,
	guid ids.ID,
	to common.Address,
	amount *uint256.Int,
) error {
	if omni.IsZeroAddress(to) {
		return ErrZeroAccount
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if t.app.Paused() {
		return omni.ErrPaused
	}

	t.lock.Lock()
	if t.minted.Contains(guid) {
		t.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrMinted, guid)
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(t.totalSupply, amount)
	if overflow {
		t.lock.Unlock()
		return ErrSupplyOverflow
	}
	t.minted.Add(guid)
	t.totalSupply.Set(newSupply)
	t.creditBalance(to, amount)
	t.lock.Unlock()

	t.log.Debug("tokens received",
		log.Stringer("originChain", originChain),
		log.Stringer("to", to),
		log.Stringer("amount", amount),
		log.Stringer("guid", guid),
	)
	t.events.Append(events.TokensReceived{
		Token:       t.address,
		OriginChain: originChain,
		To:          to,
		Amount:      new(uint256.Int).Set(amount),
		GUID:        guid,
	})
	return nil
}

// debit removes amount from account's balance. Callers hold t.lock.
func (t *Token) debit(account common.Address, amount *uint256.Int) error {
	bal, ok := t.balances[account]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s", ErrInsufficientBalance, account)
	}
	bal.Sub(bal, amount)
	return nil
}

// creditBalance adds amount to account's balance without touching the
// supply. Callers hold t.lock.
func (t *Token) creditBalance(account common.Address, amount *uint256.Int) {
	bal, ok := t.balances[account]
	if !ok {
		bal = new(uint256.Int)
		t.balances[account] = bal
	}
	bal.Add(bal, amount)
}

// credit adds amount to both account's balance and the total supply.
// Callers hold t.lock. A balance cannot overflow when the supply does not.
func (t *Token) credit(account common.Address, amount *uint256.Int) error {
	newSupply, overflow := new(uint256.Int).AddOverflow(t.totalSupply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	t.totalSupply.Set(newSupply)
	t.creditBalance(account, amount)
	return nil
}

// BalanceOf returns account's balance
func (t *Token) BalanceOf(account common.Address) *uint256.Int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	bal, ok := t.balances[account]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(bal)
}

// TotalSupply returns the supply issued on this ledger
func (t *Token) TotalSupply() *uint256.Int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return new(uint256.Int).Set(t.totalSupply)
}

// Minted reports whether guid has already minted on this ledger
func (t *Token) Minted(guid ids.ID) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.minted.Contains(guid)
}

// App returns the application the token is registered against. Peer table,
// sender role and pause administration run through it.
func (t *Token) App() *app.App {
	return t.app
}

// Address returns the token's native account
func (t *Token) Address() common.Address {
	return t.address
}

// Name returns the asset name
func (t *Token) Name() string {
	return t.name
}

// Symbol returns the asset symbol
func (t *Token) Symbol() string {
	return t.symbol
}

// Decimals returns the asset's display precision
func (t *Token) Decimals() uint8 {
	return t.decimals
}
