// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// A minimal two-ledger wiring: two hubs, an application on each, and a
// message carried across by playing the relayer by hand.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/app"
	"github.com/luxfi/omni/endpoint"
	"github.com/luxfi/omni/events"
	"github.com/luxfi/omni/relayer"
)

const (
	chainA omni.ChainID = 1
	chainB omni.ChainID = 2
)

var (
	hubAddress = common.HexToAddress("0x0100000000000000000000000000000000000001")
	owner      = common.HexToAddress("0x0200000000000000000000000000000000000002")
	appAddress = common.HexToAddress("0x0300000000000000000000000000000000000003")
)

func run() error {
	ctx := context.Background()

	// One hub per ledger.
	eventsA := events.NewLog(chainA, log.NoLog{})
	hubA, err := endpoint.New(endpoint.Config{
		ChainID: chainA,
		Address: hubAddress,
		Owner:   owner,
		Events:  eventsA,
	})
	if err != nil {
		return err
	}
	eventsB := events.NewLog(chainB, log.NoLog{})
	hubB, err := endpoint.New(endpoint.Config{
		ChainID: chainB,
		Address: hubAddress,
		Owner:   owner,
		Events:  eventsB,
	})
	if err != nil {
		return err
	}

	// The receiving application prints whatever arrives.
	appB, err := app.New(app.Config{
		Endpoint: hubB,
		Address:  appAddress,
		Admin:    owner,
		Handler: app.HandlerFunc(func(_ context.Context, origin omni.ChainID, guid ids.ID, payload []byte) error {
			fmt.Printf("Delivered from chain %s: %s\n", origin, payload)
			fmt.Printf("GUID: %s\n", guid)
			return nil
		}),
		Events: eventsB,
	})
	if err != nil {
		return err
	}

	// The sending application shares the receiver's address, so each side's
	// peer table points at the same chain-agnostic identifier.
	appA, err := app.New(app.Config{
		Endpoint: hubA,
		Address:  appAddress,
		Admin:    owner,
		Events:   eventsA,
	})
	if err != nil {
		return err
	}
	if err := appA.SetPeer(owner, chainB, appB.ID()); err != nil {
		return err
	}
	if err := appB.SetPeer(owner, chainA, appA.ID()); err != nil {
		return err
	}
	if err := appA.GrantSender(owner, owner); err != nil {
		return err
	}

	// Deliveries on B dispatch to appB through an executor.
	executor, err := relayer.NewExecutor(chainB, hubB.Address(), log.NoLog{}, nil)
	if err != nil {
		return err
	}
	if err := executor.RegisterApp(appB.ID(), appB); err != nil {
		return err
	}
	if err := hubB.SetDeliveryAgent(owner, chainA, executor); err != nil {
		return err
	}

	// Send on A, then play the relayer by hand: read the outbox and submit
	// the envelope to B.
	guid, err := appA.Send(ctx, owner, chainB, []byte("Hello from chain A to chain B!"), 0, 0)
	if err != nil {
		return err
	}
	msg, ok := hubA.SentMessage(guid)
	if !ok {
		return fmt.Errorf("message %s missing from outbox", guid)
	}
	return hubB.Receive(ctx, chainA, guid, msg.Payload, msg.Receiver, 0)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
