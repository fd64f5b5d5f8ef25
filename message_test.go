// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package omni

import (
	"crypto/rand"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

// generateTestID creates a random ID for testing
func generateTestID() ids.ID {
	var id ids.ID
	_, _ = rand.Read(id[:])
	return id
}

func TestMessage(t *testing.T) {
	require := require.New(t)

	sender := generateTestID()
	receiver := generateTestID()
	payload := []byte("test payload")

	msg, err := NewMessage(1, 2, sender, receiver, 7, 1700000000, payload)
	require.NoError(err)
	require.NotNil(msg)

	require.Equal(ChainID(1), msg.SourceChain)
	require.Equal(ChainID(2), msg.DestinationChain)
	require.Equal(sender, msg.Sender)
	require.Equal(receiver, msg.Receiver)
	require.Equal(uint64(7), msg.Nonce)
	require.Equal(uint64(1700000000), msg.Timestamp)
	require.Equal(payload, msg.Payload)

	b := msg.Bytes()
	require.NotEmpty(b)

	parsed, err := ParseMessage(b)
	require.NoError(err)
	require.True(msg.Equal(parsed))
	require.Equal(msg.GUID(), parsed.GUID())
}

func TestMessageVerify(t *testing.T) {
	sender := generateTestID()
	receiver := generateTestID()

	tests := []struct {
		name        string
		sourceChain ChainID
		destChain   ChainID
		sender      ids.ID
		receiver    ids.ID
		payload     []byte
		expectedErr error
	}{
		{
			name:        "valid",
			sourceChain: 1,
			destChain:   2,
			sender:      sender,
			receiver:    receiver,
			payload:     []byte{1, 2, 3},
		},
		{
			name:        "zero source chain",
			sourceChain: 0,
			destChain:   2,
			sender:      sender,
			receiver:    receiver,
			expectedErr: ErrZeroChain,
		},
		{
			name:        "zero destination chain",
			sourceChain: 1,
			destChain:   0,
			sender:      sender,
			receiver:    receiver,
			expectedErr: ErrZeroChain,
		},
		{
			name:        "same chain",
			sourceChain: 5,
			destChain:   5,
			sender:      sender,
			receiver:    receiver,
			expectedErr: ErrSameChain,
		},
		{
			name:        "zero sender",
			sourceChain: 1,
			destChain:   2,
			sender:      ids.ID{},
			receiver:    receiver,
			expectedErr: ErrZeroSender,
		},
		{
			name:        "zero receiver",
			sourceChain: 1,
			destChain:   2,
			sender:      sender,
			receiver:    ids.ID{},
			expectedErr: ErrZeroReceiver,
		},
		{
			name:        "oversized payload",
			sourceChain: 1,
			destChain:   2,
			sender:      sender,
			receiver:    receiver,
			payload:     make([]byte, MaxPayloadSize+1),
			expectedErr: ErrInvalidMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMessage(tt.sourceChain, tt.destChain, tt.sender, tt.receiver, 0, 0, tt.payload)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				require.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestComputeGUIDDeterminism(t *testing.T) {
	require := require.New(t)

	sender := generateTestID()
	receiver := generateTestID()
	payload := []byte("payload")

	first := ComputeGUID(1, 2, sender, receiver, 3, 4, payload)
	second := ComputeGUID(1, 2, sender, receiver, 3, 4, payload)
	require.Equal(first, second)
	require.NotEqual(ids.ID{}, first)
}

func TestComputeGUIDSensitivity(t *testing.T) {
	sender := generateTestID()
	receiver := generateTestID()
	payload := []byte("payload")

	base := ComputeGUID(1, 2, sender, receiver, 3, 4, payload)

	tests := []struct {
		name string
		guid ids.ID
	}{
		{"source chain", ComputeGUID(9, 2, sender, receiver, 3, 4, payload)},
		{"destination chain", ComputeGUID(1, 9, sender, receiver, 3, 4, payload)},
		{"sender", ComputeGUID(1, 2, generateTestID(), receiver, 3, 4, payload)},
		{"receiver", ComputeGUID(1, 2, sender, generateTestID(), 3, 4, payload)},
		{"nonce", ComputeGUID(1, 2, sender, receiver, 9, 4, payload)},
		{"timestamp", ComputeGUID(1, 2, sender, receiver, 3, 9, payload)},
		{"payload", ComputeGUID(1, 2, sender, receiver, 3, 4, []byte("other"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotEqual(t, base, tt.guid)
		})
	}
}

func TestMessageEqual(t *testing.T) {
	require := require.New(t)

	sender := generateTestID()
	receiver := generateTestID()

	a, err := NewMessage(1, 2, sender, receiver, 0, 0, []byte("x"))
	require.NoError(err)
	b, err := NewMessage(1, 2, sender, receiver, 0, 0, []byte("x"))
	require.NoError(err)
	c, err := NewMessage(1, 2, sender, receiver, 1, 0, []byte("x"))
	require.NoError(err)

	require.True(a.Equal(b))
	require.False(a.Equal(c))
	require.False(a.Equal(nil))
}
