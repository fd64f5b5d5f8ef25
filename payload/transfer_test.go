// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"crypto/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/omni"
	"github.com/stretchr/testify/require"
)

// generateTestID creates a random ID for testing
func generateTestID() ids.ID {
	var id ids.ID
	_, _ = rand.Read(id[:])
	return id
}

func TestTransferRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		amount *uint256.Int
	}{
		{"one", uint256.NewInt(1)},
		{"typical", uint256.NewInt(1_000_000)},
		{"max uint64", uint256.NewInt(^uint64(0))},
		{"wide", new(uint256.Int).Lsh(uint256.NewInt(1), 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			to := generateTestID()
			transfer, err := NewTransfer(to, tt.amount)
			require.NoError(err)

			b := transfer.Bytes()
			require.Len(b, transferLen)

			parsed, err := ParseTransfer(b)
			require.NoError(err)
			require.Equal(to, parsed.To)
			require.Equal(tt.amount, parsed.Amount)
		})
	}
}

func TestTransferVerify(t *testing.T) {
	require := require.New(t)

	_, err := NewTransfer(ids.ID{}, uint256.NewInt(1))
	require.ErrorIs(err, ErrZeroRecipient)

	_, err = NewTransfer(generateTestID(), nil)
	require.ErrorIs(err, ErrZeroAmount)

	_, err = NewTransfer(generateTestID(), uint256.NewInt(0))
	require.ErrorIs(err, ErrZeroAmount)
	require.ErrorIs(err, omni.ErrInvalidArgument)
}

func TestParseTransferRejectsMalformed(t *testing.T) {
	require := require.New(t)

	valid, err := NewTransfer(generateTestID(), uint256.NewInt(5))
	require.NoError(err)
	b := valid.Bytes()

	// truncated
	_, err = ParseTransfer(b[:transferLen-1])
	require.ErrorIs(err, ErrInvalidPayload)

	// trailing bytes
	_, err = ParseTransfer(append(append([]byte{}, b...), 0))
	require.ErrorIs(err, ErrInvalidPayload)

	// wrong version
	bad := append([]byte{}, b...)
	bad[0] = 9
	_, err = ParseTransfer(bad)
	require.ErrorIs(err, ErrInvalidPayload)

	// wrong type tag
	bad = append([]byte{}, b...)
	bad[1] = 9
	_, err = ParseTransfer(bad)
	require.ErrorIs(err, ErrInvalidPayload)
}

func TestParseDispatch(t *testing.T) {
	require := require.New(t)

	transfer, err := NewTransfer(generateTestID(), uint256.NewInt(42))
	require.NoError(err)

	p, err := Parse(transfer.Bytes())
	require.NoError(err)

	parsed, ok := p.(*Transfer)
	require.True(ok)
	require.Equal(transfer.To, parsed.To)
	require.Equal(transfer.Amount, parsed.Amount)

	_, err = Parse([]byte{Version, 99, 0, 0})
	require.ErrorIs(err, ErrUnknownType)

	_, err = Parse(nil)
	require.ErrorIs(err, ErrInvalidPayload)
}
