// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/omni"
)

// transferLen is the exact encoded size of a Transfer:
// version(1) || type(1) || to(32) || amount(32)
const transferLen = 1 + 1 + 32 + 32

var (
	ErrZeroRecipient = fmt.Errorf("%w: recipient is the zero identifier", omni.ErrInvalidArgument)
	ErrZeroAmount    = fmt.Errorf("%w: amount is zero", omni.ErrInvalidArgument)
)

var _ Payload = (*Transfer)(nil)

// Transfer moves fungible tokens to a recipient on the destination ledger.
// The recipient is chain-agnostic; the receiving token converts it to a
// native address before crediting.
type Transfer struct {
	To     ids.ID
	Amount *uint256.Int
}

// NewTransfer creates a new transfer payload
func NewTransfer(to ids.ID, amount *uint256.Int) (*Transfer, error) {
	t := &Transfer{
		To:     to,
		Amount: amount,
	}
	if err := t.Verify(); err != nil {
		return nil, err
	}
	return t, nil
}

// Verify verifies the transfer payload
func (t *Transfer) Verify() error {
	if t.To == (ids.ID{}) {
		return ErrZeroRecipient
	}
	if t.Amount == nil || t.Amount.IsZero() {
		return ErrZeroAmount
	}
	return nil
}

// Bytes serializes the transfer payload
func (t *Transfer) Bytes() []byte {
	buf := make([]byte, transferLen)
	offset := 0

	buf[offset] = Version
	offset++
	buf[offset] = TransferType
	offset++

	copy(buf[offset:], t.To[:])
	offset += 32

	amount := t.Amount.Bytes32()
	copy(buf[offset:], amount[:])

	return buf
}

// ParseTransfer deserializes a transfer payload
func ParseTransfer(b []byte) (*Transfer, error) {
	if len(b) != transferLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPayload, transferLen, len(b))
	}

	offset := 0
	if b[offset] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidPayload, b[offset])
	}
	offset++
	if b[offset] != TransferType {
		return nil, fmt.Errorf("%w: expected transfer type, got %d", ErrInvalidPayload, b[offset])
	}
	offset++

	t := &Transfer{}
	copy(t.To[:], b[offset:offset+32])
	offset += 32
	t.Amount = new(uint256.Int).SetBytes(b[offset : offset+32])

	if err := t.Verify(); err != nil {
		return nil, err
	}
	return t, nil
}
