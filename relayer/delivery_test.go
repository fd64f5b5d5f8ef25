// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/omni"
)

func TestDeliveryRequestRoundTrip(t *testing.T) {
	require := require.New(t)

	req := &DeliveryRequest{
		OriginChain: 1,
		GUID:        ids.GenerateTestID(),
		Receiver:    ids.GenerateTestID(),
		Fee:         25,
		Payload:     []byte("cross-chain payload"),
	}
	data, err := MarshalDeliveryRequest(req)
	require.NoError(err)

	parsed, err := UnmarshalDeliveryRequest(data)
	require.NoError(err)
	require.Equal(req, parsed)
}

func TestDeliveryRequestEmptyPayload(t *testing.T) {
	require := require.New(t)

	req := &DeliveryRequest{
		OriginChain: 2,
		GUID:        ids.GenerateTestID(),
		Receiver:    ids.GenerateTestID(),
	}
	data, err := MarshalDeliveryRequest(req)
	require.NoError(err)
	require.Len(data, deliveryRequestMinLen)

	parsed, err := UnmarshalDeliveryRequest(data)
	require.NoError(err)
	require.Equal(req.GUID, parsed.GUID)
	require.Empty(parsed.Payload)
}

func TestUnmarshalDeliveryRequestRejectsMalformed(t *testing.T) {
	require := require.New(t)

	_, err := UnmarshalDeliveryRequest(nil)
	require.ErrorContains(err, "data too short")

	req := &DeliveryRequest{
		OriginChain: 1,
		GUID:        ids.GenerateTestID(),
		Receiver:    ids.GenerateTestID(),
		Payload:     []byte{1, 2, 3},
	}
	data, err := MarshalDeliveryRequest(req)
	require.NoError(err)

	// A declared payload length beyond the buffer is rejected.
	short := make([]byte, len(data))
	copy(short, data)
	short[len(short)-4] = 0xff
	_, err = UnmarshalDeliveryRequest(short)
	require.ErrorContains(err, "expected")

	// So are trailing bytes beyond the declared payload.
	_, err = UnmarshalDeliveryRequest(append(data, 0))
	require.ErrorContains(err, "expected")
}

func TestDeliveryHandlerSubmits(t *testing.T) {
	require := require.New(t)

	submitter := &FakeSubmitter{}
	handler := NewDeliveryHandler(submitter, log.NoLog{})

	req := &DeliveryRequest{
		OriginChain: 1,
		GUID:        ids.GenerateTestID(),
		Receiver:    ids.GenerateTestID(),
		Fee:         5,
		Payload:     []byte("hello"),
	}
	data, err := MarshalDeliveryRequest(req)
	require.NoError(err)

	resp, err := handler.Request(context.Background(), ids.GenerateTestNodeID(), time.Now(), data)
	require.NoError(err)
	require.Empty(resp)

	submissions := submitter.Submissions()
	require.Len(submissions, 1)
	require.Equal(req.OriginChain, submissions[0].OriginChain)
	require.Equal(req.GUID, submissions[0].GUID)
	require.Equal(req.Receiver, submissions[0].Receiver)
	require.Equal(req.Fee, submissions[0].Fee)
	require.Equal(req.Payload, submissions[0].Payload)
}

func TestDeliveryHandlerReplayIsBenign(t *testing.T) {
	require := require.New(t)

	submitter := &FakeSubmitter{Err: omni.ErrReplay}
	handler := NewDeliveryHandler(submitter, log.NoLog{})

	req := &DeliveryRequest{
		OriginChain: 1,
		GUID:        ids.GenerateTestID(),
		Receiver:    ids.GenerateTestID(),
	}
	data, err := MarshalDeliveryRequest(req)
	require.NoError(err)

	// A replayed delivery is already on the ledger: the handler reports
	// success so the remote relay stops retrying.
	_, err = handler.Request(context.Background(), ids.GenerateTestNodeID(), time.Now(), data)
	require.NoError(err)
}

func TestDeliveryHandlerAdapter(t *testing.T) {
	require := require.New(t)

	submitter := &FakeSubmitter{}
	adapter := NewDeliveryHandlerAdapter(NewDeliveryHandler(submitter, log.NoLog{}))

	_, appErr := adapter.Request(context.Background(), ids.GenerateTestNodeID(), time.Now(), []byte("garbage"))
	require.NotNil(appErr)
	require.Contains(appErr.Message, "data too short")

	req := &DeliveryRequest{OriginChain: 1, GUID: ids.GenerateTestID(), Receiver: ids.GenerateTestID()}
	data, err := MarshalDeliveryRequest(req)
	require.NoError(err)
	_, appErr = adapter.Request(context.Background(), ids.GenerateTestNodeID(), time.Now(), data)
	require.Nil(appErr)
	require.Len(submitter.Submissions(), 1)
}
