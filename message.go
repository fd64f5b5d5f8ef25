// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package omni

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/luxfi/ids"
)

const (
	CodecVersion = 0

	// MaxPayloadSize bounds the application payload carried by one envelope.
	MaxPayloadSize = 256 * KiB
)

var (
	ErrInvalidMessage = fmt.Errorf("%w: invalid message", ErrInvalidArgument)
	ErrZeroChain      = fmt.Errorf("%w: zero chain id", ErrInvalidArgument)
	ErrSameChain      = fmt.Errorf("%w: source and destination chain are equal", ErrInvalidArgument)
	ErrZeroSender     = fmt.Errorf("%w: sender is the zero identifier", ErrInvalidArgument)
	ErrZeroReceiver   = fmt.Errorf("%w: receiver is the zero identifier", ErrInvalidArgument)
)

// ChainID identifies one ledger instance. Zero is reserved and invalid.
type ChainID uint32

func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// Message is the canonical cross-chain envelope. Sender and Receiver are
// chain-agnostic 32-byte identifiers; Nonce is the per-sender counter
// assigned by the sending hub; Timestamp is the ledger time of the send.
type Message struct {
	SourceChain      ChainID `serialize:"true"`
	DestinationChain ChainID `serialize:"true"`
	Sender           ids.ID  `serialize:"true"`
	Receiver         ids.ID  `serialize:"true"`
	Nonce            uint64  `serialize:"true"`
	Timestamp        uint64  `serialize:"true"`
	Payload          []byte  `serialize:"true"`
}

// NewMessage creates a new envelope
func NewMessage(
	sourceChain ChainID,
	destinationChain ChainID,
	sender ids.ID,
	receiver ids.ID,
	nonce uint64,
	timestamp uint64,
	payload []byte,
) (*Message, error) {
	msg := &Message{
		SourceChain:      sourceChain,
		DestinationChain: destinationChain,
		Sender:           sender,
		Receiver:         receiver,
		Nonce:            nonce,
		Timestamp:        timestamp,
		Payload:          payload,
	}
	if err := msg.Verify(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Verify verifies the envelope
func (m *Message) Verify() error {
	if m.SourceChain == 0 || m.DestinationChain == 0 {
		return ErrZeroChain
	}
	if m.SourceChain == m.DestinationChain {
		return ErrSameChain
	}
	if m.Sender == (ids.ID{}) {
		return ErrZeroSender
	}
	if m.Receiver == (ids.ID{}) {
		return ErrZeroReceiver
	}
	if len(m.Payload) > MaxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d", ErrInvalidMessage, len(m.Payload), MaxPayloadSize)
	}
	return nil
}

// Bytes returns the canonical byte representation of the envelope
func (m *Message) Bytes() []byte {
	b, _ := Codec.Marshal(CodecVersion, m)
	return b
}

// GUID returns the globally unique identifier of the envelope
func (m *Message) GUID() ids.ID {
	return ComputeGUID(
		m.SourceChain,
		m.DestinationChain,
		m.Sender,
		m.Receiver,
		m.Nonce,
		m.Timestamp,
		m.Payload,
	)
}

// Equal returns true if two envelopes are equal
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.SourceChain == other.SourceChain &&
		m.DestinationChain == other.DestinationChain &&
		m.Sender == other.Sender &&
		m.Receiver == other.Receiver &&
		m.Nonce == other.Nonce &&
		m.Timestamp == other.Timestamp &&
		bytes.Equal(m.Payload, other.Payload)
}

// ParseMessage parses an envelope from bytes
func ParseMessage(b []byte) (*Message, error) {
	msg := &Message{}
	if _, err := Codec.Unmarshal(b, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if err := msg.Verify(); err != nil {
		return nil, err
	}
	return msg, nil
}

// guidPreimageLen is the fixed-width prefix of the guid preimage:
// sourceChain(4) || destChain(4) || sender(32) || receiver(32) ||
// nonce(8) || timestamp(8), followed by the raw payload.
const guidPreimageLen = 4 + 4 + 32 + 32 + 8 + 8

// ComputeGUID derives the 32-byte message identifier. The identifier is
// deterministic in every envelope field, unique for all practical purposes,
// and is the key of every replay guard downstream.
func ComputeGUID(
	sourceChain ChainID,
	destinationChain ChainID,
	sender ids.ID,
	receiver ids.ID,
	nonce uint64,
	timestamp uint64,
	payload []byte,
) ids.ID {
	buf := make([]byte, guidPreimageLen+len(payload))
	offset := 0

	binary.BigEndian.PutUint32(buf[offset:], uint32(sourceChain))
	offset += 4
	binary.BigEndian.PutUint32(buf[offset:], uint32(destinationChain))
	offset += 4

	copy(buf[offset:], sender[:])
	offset += 32
	copy(buf[offset:], receiver[:])
	offset += 32

	binary.BigEndian.PutUint64(buf[offset:], nonce)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], timestamp)
	offset += 8

	copy(buf[offset:], payload)

	return ids.ID(ComputeHash256Array(buf))
}
