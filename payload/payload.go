// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payload defines the typed payloads carried inside cross-chain
// envelopes. Every payload starts with a one-byte codec version and a
// one-byte type tag, followed by a fixed-width big-endian body.
package payload

import (
	"fmt"

	"github.com/luxfi/omni"
)

// Version is the payload codec version
const Version uint8 = 1

// Payload type tags
const (
	// TransferType tags a fungible token transfer
	TransferType uint8 = 0
)

var (
	// ErrInvalidPayload is returned when a payload is malformed
	ErrInvalidPayload = fmt.Errorf("%w: invalid payload", omni.ErrInvalidArgument)

	// ErrUnknownType is returned for an unrecognized payload type tag
	ErrUnknownType = fmt.Errorf("%w: unknown payload type", omni.ErrInvalidArgument)
)

// Payload is a typed message payload
type Payload interface {
	// Bytes returns the byte representation of the payload
	Bytes() []byte

	// Verify verifies the payload
	Verify() error
}

// Parse decodes a payload by its type tag
func Parse(b []byte) (Payload, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPayload, len(b))
	}
	if b[0] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidPayload, b[0])
	}
	switch b[1] {
	case TransferType:
		return ParseTransfer(b)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, b[1])
	}
}
