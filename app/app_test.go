// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package app

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/endpoint"
	"github.com/luxfi/omni/events"
)

const (
	localChain  omni.ChainID = 201
	remoteChain omni.ChainID = 202
)

var (
	hubAddr    = common.BytesToAddress([]byte{0x0e})
	ownerAddr  = common.BytesToAddress([]byte{0x0a})
	adminAddr  = common.BytesToAddress([]byte{0x0d})
	senderAddr = common.BytesToAddress([]byte{0x05})
	otherAddr  = common.BytesToAddress([]byte{0x0b})
	appAddr    = common.BytesToAddress([]byte{0xaa})
)

func generateTestID(t *testing.T) ids.ID {
	var id ids.ID
	_, err := rand.Read(id[:])
	require.NoError(t, err)
	return id
}

// handlerCall records one HandleMessage invocation
type handlerCall struct {
	originChain omni.ChainID
	guid        ids.ID
	payload     []byte
}

type recordingHandler struct {
	calls []handlerCall
	err   error
}

func (h *recordingHandler) HandleMessage(
	_ context.Context,
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
) error {
	h.calls = append(h.calls, handlerCall{
		originChain: originChain,
		guid:        guid,
		payload:     payload,
	})
	return h.err
}

func newTestApp(t *testing.T, handler Handler) (*App, *endpoint.Endpoint, *events.Log) {
	elog := events.NewLog(localChain, log.NoLog{})
	hub, err := endpoint.New(endpoint.Config{
		ChainID: localChain,
		Address: hubAddr,
		Owner:   ownerAddr,
		Log:     log.NoLog{},
		Events:  elog,
		Clock:   func() uint64 { return 1700000000 },
	})
	require.NoError(t, err)

	a, err := New(Config{
		Endpoint: hub,
		Address:  appAddr,
		Admin:    adminAddr,
		Handler:  handler,
		Log:      log.NoLog{},
		Events:   elog,
	})
	require.NoError(t, err)
	return a, hub, elog
}

func TestConfigVerify(t *testing.T) {
	elog := events.NewLog(localChain, log.NoLog{})
	hub, err := endpoint.New(endpoint.Config{
		ChainID: localChain,
		Address: hubAddr,
		Owner:   ownerAddr,
		Events:  elog,
	})
	require.NoError(t, err)

	valid := Config{
		Endpoint: hub,
		Address:  appAddr,
		Admin:    adminAddr,
		Events:   elog,
	}

	tests := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:   "nil endpoint",
			modify: func(c *Config) { c.Endpoint = nil },
			err:    omni.ErrInvalidArgument,
		},
		{
			name:   "zero address",
			modify: func(c *Config) { c.Address = common.Address{} },
			err:    omni.ErrInvalidArgument,
		},
		{
			name:   "zero admin",
			modify: func(c *Config) { c.Admin = common.Address{} },
			err:    omni.ErrInvalidArgument,
		},
		{
			name:   "nil events",
			modify: func(c *Config) { c.Events = nil },
			err:    omni.ErrInvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			cfg := valid
			tt.modify(&cfg)
			_, err := New(cfg)
			if tt.err != nil {
				require.ErrorIs(err, tt.err)
				return
			}
			require.NoError(err)
		})
	}
}

func TestSendChecks(t *testing.T) {
	require := require.New(t)

	a, hub, _ := newTestApp(t, nil)
	ctx := context.Background()
	payload := []byte{1, 2, 3}

	// Sender role is enforced first.
	_, err := a.Send(ctx, senderAddr, remoteChain, payload, 1, 1)
	require.ErrorIs(err, ErrNotSender)
	require.ErrorIs(err, omni.ErrUnauthorized)

	require.NoError(a.GrantSender(adminAddr, senderAddr))
	require.True(a.IsSender(senderAddr))

	// No peer configured for the destination yet.
	_, err = a.Send(ctx, senderAddr, remoteChain, payload, 1, 1)
	require.ErrorIs(err, ErrNoPeer)
	require.ErrorIs(err, omni.ErrNotConfigured)

	peer := generateTestID(t)
	require.NoError(a.SetPeer(adminAddr, remoteChain, peer))

	// The attached value must cover the fee.
	_, err = a.Send(ctx, senderAddr, remoteChain, payload, 5, 4)
	require.ErrorIs(err, ErrInsufficientValue)
	require.ErrorIs(err, omni.ErrInvalidArgument)

	// Nothing advanced on the hub so far.
	require.Zero(hub.OutboundNonce(a.ID()))

	guid, err := a.Send(ctx, senderAddr, remoteChain, payload, 5, 5)
	require.NoError(err)
	require.NotEqual(ids.ID{}, guid)

	msg, ok := hub.SentMessage(guid)
	require.True(ok)
	require.Equal(a.ID(), msg.Sender)
	require.Equal(peer, msg.Receiver)
	require.Equal(remoteChain, msg.DestinationChain)
	require.Equal(payload, msg.Payload)
	require.Equal(uint64(1), hub.OutboundNonce(a.ID()))
	require.Equal(uint64(5), hub.CollectedFees())
}

func TestSendWhilePaused(t *testing.T) {
	require := require.New(t)

	a, _, _ := newTestApp(t, nil)
	ctx := context.Background()

	require.NoError(a.GrantSender(adminAddr, senderAddr))
	require.NoError(a.SetPeer(adminAddr, remoteChain, generateTestID(t)))
	require.NoError(a.Pause(adminAddr))
	require.True(a.Paused())

	_, err := a.Send(ctx, senderAddr, remoteChain, []byte{1}, 0, 0)
	require.ErrorIs(err, omni.ErrPaused)

	// Reads stay available while paused.
	require.True(a.IsSender(senderAddr))
	_, ok := a.Peer(remoteChain)
	require.True(ok)

	require.NoError(a.Unpause(adminAddr))
	_, err = a.Send(ctx, senderAddr, remoteChain, []byte{1}, 0, 0)
	require.NoError(err)
}

func TestReceiveTrustChecks(t *testing.T) {
	require := require.New(t)

	handler := &recordingHandler{}
	a, _, _ := newTestApp(t, handler)
	ctx := context.Background()

	guid := generateTestID(t)
	payload := []byte{0xca, 0xfe}

	// Only the hub's native account may deliver.
	err := a.Receive(ctx, otherAddr, remoteChain, guid, payload)
	require.ErrorIs(err, ErrNotHub)
	require.ErrorIs(err, omni.ErrUnauthorized)

	// An unset peer is an untrusted path.
	err = a.Receive(ctx, hubAddr, remoteChain, guid, payload)
	require.ErrorIs(err, ErrUntrustedPeer)
	require.ErrorIs(err, omni.ErrUnauthorized)

	// A peer that is not this application's own identifier is untrusted:
	// correctly paired deployments record the same identifier on both
	// sides.
	require.NoError(a.SetPeer(adminAddr, remoteChain, generateTestID(t)))
	err = a.Receive(ctx, hubAddr, remoteChain, guid, payload)
	require.ErrorIs(err, ErrUntrustedPeer)
	require.Empty(handler.calls)
	require.False(a.Executed(guid))

	// Peer rotation to the trusted identifier unblocks delivery.
	require.NoError(a.SetPeer(adminAddr, remoteChain, a.ID()))
	require.NoError(a.Receive(ctx, hubAddr, remoteChain, guid, payload))
	require.True(a.Executed(guid))
	require.Len(handler.calls, 1)
	require.Equal(remoteChain, handler.calls[0].originChain)
	require.Equal(guid, handler.calls[0].guid)
	require.Equal(payload, handler.calls[0].payload)

	// Redelivery is a replay regardless of the hub's own guard.
	err = a.Receive(ctx, hubAddr, remoteChain, guid, payload)
	require.ErrorIs(err, ErrExecuted)
	require.ErrorIs(err, omni.ErrReplay)
	require.Len(handler.calls, 1)
}

func TestReceiveWhilePaused(t *testing.T) {
	require := require.New(t)

	a, _, _ := newTestApp(t, nil)
	ctx := context.Background()

	require.NoError(a.SetPeer(adminAddr, remoteChain, a.ID()))
	require.NoError(a.Pause(adminAddr))

	guid := generateTestID(t)
	err := a.Receive(ctx, hubAddr, remoteChain, guid, nil)
	require.ErrorIs(err, omni.ErrPaused)
	require.False(a.Executed(guid))

	require.NoError(a.Unpause(adminAddr))
	require.NoError(a.Receive(ctx, hubAddr, remoteChain, guid, nil))
}

func TestReceiveHandlerFailureKeepsMark(t *testing.T) {
	require := require.New(t)

	handler := &recordingHandler{err: omni.ErrInvalidArgument}
	a, _, elog := newTestApp(t, handler)
	ctx := context.Background()

	require.NoError(a.SetPeer(adminAddr, remoteChain, a.ID()))

	guid := generateTestID(t)
	err := a.Receive(ctx, hubAddr, remoteChain, guid, nil)
	require.ErrorIs(err, omni.ErrInvalidArgument)

	// Executed once means executed forever, even when the handler failed.
	require.True(a.Executed(guid))

	err = a.Receive(ctx, hubAddr, remoteChain, guid, nil)
	require.ErrorIs(err, omni.ErrReplay)
	require.Len(handler.calls, 1)

	// No receive event for the failed dispatch.
	for _, rec := range elog.Entries(0) {
		require.NotEqual(events.TypeAppReceived, rec.Event.Type())
	}
}

func TestReceiveBlocksNestedSend(t *testing.T) {
	require := require.New(t)

	var a *App
	var nestedErr error
	handler := HandlerFunc(func(ctx context.Context, _ omni.ChainID, _ ids.ID, _ []byte) error {
		_, nestedErr = a.Send(ctx, senderAddr, remoteChain, []byte{1}, 0, 0)
		return nil
	})

	a, _, _ = newTestApp(t, handler)
	ctx := context.Background()

	require.NoError(a.GrantSender(adminAddr, senderAddr))
	require.NoError(a.SetPeer(adminAddr, remoteChain, a.ID()))

	require.NoError(a.Receive(ctx, hubAddr, remoteChain, generateTestID(t), nil))
	require.ErrorIs(nestedErr, omni.ErrReentrancy)

	// The guard releases with the outer call, so a fresh send succeeds.
	_, err := a.Send(ctx, senderAddr, remoteChain, []byte{1}, 0, 0)
	require.NoError(err)
}

func TestAdminOnly(t *testing.T) {
	require := require.New(t)

	a, _, elog := newTestApp(t, nil)
	peer := generateTestID(t)

	require.ErrorIs(a.SetPeer(otherAddr, remoteChain, peer), ErrNotAdmin)
	require.ErrorIs(a.GrantSender(otherAddr, senderAddr), ErrNotAdmin)
	require.ErrorIs(a.RevokeSender(otherAddr, senderAddr), ErrNotAdmin)
	require.ErrorIs(a.Pause(otherAddr), ErrNotAdmin)
	require.ErrorIs(a.Unpause(otherAddr), ErrNotAdmin)
	require.ErrorIs(a.SetPeer(otherAddr, remoteChain, peer), omni.ErrUnauthorized)

	require.ErrorIs(a.SetPeer(adminAddr, 0, peer), omni.ErrZeroChain)
	require.ErrorIs(a.SetPeer(adminAddr, remoteChain, ids.ID{}), ErrZeroPeer)
	require.ErrorIs(a.GrantSender(adminAddr, common.Address{}), ErrZeroAccount)

	// Peer writes are unconditional overwrites.
	require.NoError(a.SetPeer(adminAddr, remoteChain, peer))
	rotated := generateTestID(t)
	require.NoError(a.SetPeer(adminAddr, remoteChain, rotated))
	got, ok := a.Peer(remoteChain)
	require.True(ok)
	require.Equal(rotated, got)

	require.NoError(a.GrantSender(adminAddr, senderAddr))
	require.True(a.IsSender(senderAddr))
	require.NoError(a.RevokeSender(adminAddr, senderAddr))
	require.False(a.IsSender(senderAddr))

	// Pausing a paused instance appends nothing.
	require.NoError(a.Pause(adminAddr))
	before := elog.Len()
	require.NoError(a.Pause(adminAddr))
	require.Equal(before, elog.Len())
	require.NoError(a.Unpause(adminAddr))
	require.NoError(a.Unpause(adminAddr))

	require.Equal(appAddr, a.Address())
	require.Equal(adminAddr, a.Admin())
	require.Equal(omni.AddressToID(appAddr), a.ID())
}
