// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/luxfi/p2p"

	"github.com/luxfi/omni"
)

// DeliveryHandlerID is the protocol ID for delivery submission handling
const DeliveryHandlerID = 0x6f6d6e69

// deliveryRequestMinLen is chain(4) + guid(32) + receiver(32) + fee(8) +
// payloadLen(4)
const deliveryRequestMinLen = 4 + 32 + 32 + 8 + 4

// DeliveryRequest asks a remote hub to execute one message
type DeliveryRequest struct {
	OriginChain omni.ChainID
	GUID        ids.ID
	Receiver    ids.ID
	Fee         uint64
	Payload     []byte
}

// MarshalDeliveryRequest marshals a delivery request to bytes
func MarshalDeliveryRequest(req *DeliveryRequest) ([]byte, error) {
	// Format: chain(4) + guid(32) + receiver(32) + fee(8) + payloadLen(4) + payload
	buf := make([]byte, deliveryRequestMinLen+len(req.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(req.OriginChain))
	copy(buf[4:36], req.GUID[:])
	copy(buf[36:68], req.Receiver[:])
	binary.BigEndian.PutUint64(buf[68:76], req.Fee)
	binary.BigEndian.PutUint32(buf[76:80], uint32(len(req.Payload)))
	copy(buf[80:], req.Payload)
	return buf, nil
}

// UnmarshalDeliveryRequest unmarshals bytes to a delivery request
func UnmarshalDeliveryRequest(data []byte) (*DeliveryRequest, error) {
	if len(data) < deliveryRequestMinLen {
		return nil, fmt.Errorf("data too short: %d", len(data))
	}
	payloadLen := binary.BigEndian.Uint32(data[76:80])
	if uint64(len(data)) != uint64(deliveryRequestMinLen)+uint64(payloadLen) {
		return nil, fmt.Errorf("expected %d bytes for payload length %d, got %d",
			uint64(deliveryRequestMinLen)+uint64(payloadLen), payloadLen, len(data))
	}
	req := &DeliveryRequest{
		OriginChain: omni.ChainID(binary.BigEndian.Uint32(data[0:4])),
		Fee:         binary.BigEndian.Uint64(data[68:76]),
		Payload:     data[80 : 80+payloadLen],
	}
	copy(req.GUID[:], data[4:36])
	copy(req.Receiver[:], data[36:68])
	return req, nil
}

// DeliveryHandler executes remote delivery requests against a local
// submitter. Replays are reported as success: the message is on the ledger
// either way, and an at-least-once relay must be able to retry safely.
type DeliveryHandler struct {
	submitter Submitter
	log       log.Logger
}

func NewDeliveryHandler(submitter Submitter, logger log.Logger) *DeliveryHandler {
	if logger == nil {
		logger = log.NoLog{}
	}
	return &DeliveryHandler{
		submitter: submitter,
		log:       logger,
	}
}

// Request handles one marshalled delivery request and returns an empty
// response on success
func (h *DeliveryHandler) Request(ctx context.Context, nodeID ids.NodeID, _ time.Time, request []byte) ([]byte, error) {
	req, err := UnmarshalDeliveryRequest(request)
	if err != nil {
		return nil, err
	}

	err = h.submitter.Submit(ctx, req.OriginChain, req.GUID, req.Payload, req.Receiver, req.Fee)
	if errors.Is(err, omni.ErrReplay) {
		h.log.Debug("duplicate delivery request",
			log.Stringer("nodeID", nodeID),
			log.Stringer("guid", req.GUID),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// Ensure DeliveryHandlerAdapter implements p2p.Handler
var _ p2p.Handler = (*DeliveryHandlerAdapter)(nil)

// DeliveryHandlerAdapter adapts a DeliveryHandler to the p2p.Handler
// interface, so a hub can accept deliveries over the p2p router.
type DeliveryHandlerAdapter struct {
	handler *DeliveryHandler
}

func NewDeliveryHandlerAdapter(handler *DeliveryHandler) *DeliveryHandlerAdapter {
	return &DeliveryHandlerAdapter{handler: handler}
}

// Gossip implements p2p.Handler. Delivery handlers do not use gossip.
func (a *DeliveryHandlerAdapter) Gossip(ctx context.Context, nodeID ids.NodeID, gossipBytes []byte) {
}

// Request implements p2p.Handler by delegating to the wrapped DeliveryHandler.
func (a *DeliveryHandlerAdapter) Request(ctx context.Context, nodeID ids.NodeID, deadline time.Time, requestBytes []byte) ([]byte, *p2p.Error) {
	response, err := a.handler.Request(ctx, nodeID, deadline, requestBytes)
	if err != nil {
		return nil, &p2p.Error{
			Code:    500,
			Message: err.Error(),
		}
	}
	return response, nil
}
