// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package omni

import (
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// addressPad is the number of zero bytes prefixed to a 20-byte native
// address inside a 32-byte chain-agnostic identifier.
const addressPad = 12

// ErrNotAnAddress is returned when a chain-agnostic identifier carries
// nonzero bytes outside the 20-byte native address suffix.
var ErrNotAnAddress = fmt.Errorf("%w: identifier does not fit a native address", ErrInvalidArgument)

// AddressToID widens a native 20-byte address to the 32-byte chain-agnostic
// form by left-padding with zeros.
func AddressToID(addr common.Address) ids.ID {
	var id ids.ID
	copy(id[addressPad:], addr[:])
	return id
}

// IDToAddress narrows a chain-agnostic identifier back to a native address.
// Fails if any of the leading pad bytes is nonzero, so identifiers minted on
// ledgers with wider address spaces cannot be silently truncated.
func IDToAddress(id ids.ID) (common.Address, error) {
	for _, b := range id[:addressPad] {
		if b != 0 {
			return common.Address{}, ErrNotAnAddress
		}
	}
	return common.BytesToAddress(id[addressPad:]), nil
}

// IsZeroID reports whether id is the null chain-agnostic identifier.
func IsZeroID(id ids.ID) bool {
	return id == (ids.ID{})
}

// IsZeroAddress reports whether addr is the null native address.
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
