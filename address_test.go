// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package omni

import (
	"crypto/rand"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func generateTestAddress() common.Address {
	var addr common.Address
	_, _ = rand.Read(addr[:])
	return addr
}

func TestAddressRoundTrip(t *testing.T) {
	require := require.New(t)

	addr := generateTestAddress()
	id := AddressToID(addr)

	// 12-byte zero pad followed by the address
	for _, b := range id[:12] {
		require.Zero(b)
	}
	require.Equal(addr[:], id[12:])

	back, err := IDToAddress(id)
	require.NoError(err)
	require.Equal(addr, back)
}

func TestIDToAddressRejectsWideIdentifier(t *testing.T) {
	require := require.New(t)

	id := generateTestID()
	id[0] = 1

	_, err := IDToAddress(id)
	require.ErrorIs(err, ErrNotAnAddress)
	require.ErrorIs(err, ErrInvalidArgument)
}

func TestZeroChecks(t *testing.T) {
	require := require.New(t)

	require.True(IsZeroID(ids.ID{}))
	require.False(IsZeroID(generateTestID()))
	require.True(IsZeroAddress(common.Address{}))
	require.False(IsZeroAddress(generateTestAddress()))
}
