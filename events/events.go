// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events provides the per-ledger audit trail. Every state transition
// appends an immutable record; off-chain relayers discover messages to
// deliver by tailing the log.
package events

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/omni"
)

// Type discriminates event records
type Type string

const (
	TypeMessageSent      Type = "message_sent"
	TypeMessageDelivered Type = "message_delivered"
	TypeAppSent          Type = "app_sent"
	TypeAppReceived      Type = "app_received"
	TypePeerSet          Type = "peer_set"
	TypeSenderGranted    Type = "sender_granted"
	TypeSenderRevoked    Type = "sender_revoked"
	TypePaused           Type = "paused"
	TypeUnpaused         Type = "unpaused"
	TypeTokensSent       Type = "tokens_sent"
	TypeTokensReceived   Type = "tokens_received"
	TypeTransfer         Type = "transfer"
	TypeMint             Type = "mint"
)

// Event is one immutable state-transition record
type Event interface {
	Type() Type
}

// MessageSent is appended by the hub for every accepted send. It carries the
// full envelope so a relayer can deliver from the event alone.
type MessageSent struct {
	Message *omni.Message
	GUID    ids.ID
	Fee     uint64
}

func (MessageSent) Type() Type { return TypeMessageSent }

// MessageDelivered is appended by the hub after a successful receive.
type MessageDelivered struct {
	OriginChain omni.ChainID
	GUID        ids.ID
	Receiver    ids.ID
}

func (MessageDelivered) Type() Type { return TypeMessageDelivered }

// AppSent is appended by an application after delegating a send to its hub.
type AppSent struct {
	App       ids.ID
	DestChain omni.ChainID
	GUID      ids.ID
}

func (AppSent) Type() Type { return TypeAppSent }

// AppReceived is appended by an application after dispatching a delivery to
// its payload handler.
type AppReceived struct {
	App         ids.ID
	OriginChain omni.ChainID
	GUID        ids.ID
}

func (AppReceived) Type() Type { return TypeAppReceived }

// PeerSet records a peer-table write.
type PeerSet struct {
	App   ids.ID
	Chain omni.ChainID
	Peer  ids.ID
}

func (PeerSet) Type() Type { return TypePeerSet }

// SenderGranted records a sender-role grant.
type SenderGranted struct {
	App     ids.ID
	Account common.Address
}

func (SenderGranted) Type() Type { return TypeSenderGranted }

// SenderRevoked records a sender-role revocation.
type SenderRevoked struct {
	App     ids.ID
	Account common.Address
}

func (SenderRevoked) Type() Type { return TypeSenderRevoked }

// Paused records an administrative pause.
type Paused struct {
	App ids.ID
}

func (Paused) Type() Type { return TypePaused }

// Unpaused records an administrative unpause.
type Unpaused struct {
	App ids.ID
}

func (Unpaused) Type() Type { return TypeUnpaused }

// TokensSent records a burn-and-send on the source ledger.
type TokensSent struct {
	Token     common.Address
	DestChain omni.ChainID
	From      common.Address
	To        ids.ID
	Amount    *uint256.Int
	GUID      ids.ID
}

func (TokensSent) Type() Type { return TypeTokensSent }

// TokensReceived records a mint on the destination ledger.
type TokensReceived struct {
	Token       common.Address
	OriginChain omni.ChainID
	To          common.Address
	Amount      *uint256.Int
	GUID        ids.ID
}

func (TokensReceived) Type() Type { return TypeTokensReceived }

// Transfer records a local balance move.
type Transfer struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *uint256.Int
}

func (Transfer) Type() Type { return TypeTransfer }

// Mint records an administrative issuance.
type Mint struct {
	Token  common.Address
	To     common.Address
	Amount *uint256.Int
}

func (Mint) Type() Type { return TypeMint }
