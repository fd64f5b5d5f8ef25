// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/endpoint"
)

// Submitter hands a verified delivery to a destination hub. The relayer only
// depends on this interface, so tests and remote transports can stand in for
// a local hub.
type Submitter interface {
	Submit(
		ctx context.Context,
		originChain omni.ChainID,
		guid ids.ID,
		payload []byte,
		receiver ids.ID,
		fee uint64,
	) error
}

// HubSubmitter submits deliveries straight into an in-process hub
type HubSubmitter struct {
	hub *endpoint.Endpoint
}

var _ Submitter = (*HubSubmitter)(nil)

func NewHubSubmitter(hub *endpoint.Endpoint) *HubSubmitter {
	return &HubSubmitter{hub: hub}
}

func (s *HubSubmitter) Submit(
	ctx context.Context,
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
	receiver ids.ID,
	fee uint64,
) error {
	return s.hub.Receive(ctx, originChain, guid, payload, receiver, fee)
}
