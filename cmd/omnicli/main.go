// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/endpoint"
	"github.com/luxfi/omni/events"
	"github.com/luxfi/omni/payload"
	"github.com/luxfi/omni/relayer"
	"github.com/luxfi/omni/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "omni",
	Short: "Omni - Cross-chain messaging protocol CLI",
	Long: `Omni is a minimal cross-chain messaging protocol with burn-and-mint
token bridging.

This CLI provides tools for computing message identifiers, encoding transfer
payloads, generating attestor keys and running a local bridge demo.`,
	Version: fmt.Sprintf("%s (built %s)", version, buildDate),
}

func init() {
	rootCmd.AddCommand(guidCmd)
	rootCmd.AddCommand(encodeTransferCmd)
	rootCmd.AddCommand(decodeTransferCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(demoCmd)

	guidCmd.Flags().Uint32("source", 1, "Source chain ID")
	guidCmd.Flags().Uint32("dest", 2, "Destination chain ID")
	guidCmd.Flags().String("sender", "", "Sender (hex address or 32-byte hex ID)")
	guidCmd.Flags().String("receiver", "", "Receiver (hex address or 32-byte hex ID)")
	guidCmd.Flags().Uint64("nonce", 0, "Per-sender message nonce")
	guidCmd.Flags().Uint64("timestamp", 0, "Envelope timestamp (unix seconds, 0 for now)")
	guidCmd.Flags().String("payload", "", "Payload as a hex string")

	encodeTransferCmd.Flags().String("to", "", "Destination account (hex address)")
	encodeTransferCmd.Flags().String("amount", "", "Token amount (decimal)")

	decodeTransferCmd.Flags().String("payload", "", "Transfer payload as a hex string")

	demoCmd.Flags().String("amount", "100", "Token amount bridged in the demo")
}

var guidCmd = &cobra.Command{
	Use:   "guid",
	Short: "Compute a message identifier",
	Long:  `Compute the globally unique identifier of a message from its envelope fields.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetUint32("source")
		dest, _ := cmd.Flags().GetUint32("dest")
		senderStr, _ := cmd.Flags().GetString("sender")
		receiverStr, _ := cmd.Flags().GetString("receiver")
		nonce, _ := cmd.Flags().GetUint64("nonce")
		timestamp, _ := cmd.Flags().GetUint64("timestamp")
		payloadHex, _ := cmd.Flags().GetString("payload")

		sender, err := parseID(senderStr)
		if err != nil {
			return fmt.Errorf("invalid sender: %w", err)
		}
		receiver, err := parseID(receiverStr)
		if err != nil {
			return fmt.Errorf("invalid receiver: %w", err)
		}
		raw, err := hex.DecodeString(payloadHex)
		if err != nil {
			return fmt.Errorf("invalid payload hex: %w", err)
		}
		if timestamp == 0 {
			timestamp = uint64(time.Now().Unix())
		}

		msg, err := omni.NewMessage(
			omni.ChainID(source),
			omni.ChainID(dest),
			sender,
			receiver,
			nonce,
			timestamp,
			raw,
		)
		if err != nil {
			return err
		}
		guid := msg.GUID()
		fmt.Printf("GUID: %s\n", hex.EncodeToString(guid[:]))
		return nil
	},
}

var encodeTransferCmd = &cobra.Command{
	Use:   "encode-transfer",
	Short: "Encode a token transfer payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		toStr, _ := cmd.Flags().GetString("to")
		amountStr, _ := cmd.Flags().GetString("amount")

		if !common.IsHexAddress(toStr) {
			return fmt.Errorf("invalid to address %q", toStr)
		}
		amount, err := uint256.FromDecimal(amountStr)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amountStr, err)
		}

		xfer, err := payload.NewTransfer(omni.AddressToID(common.HexToAddress(toStr)), amount)
		if err != nil {
			return err
		}
		fmt.Printf("Payload: %s\n", hex.EncodeToString(xfer.Bytes()))
		return nil
	},
}

var decodeTransferCmd = &cobra.Command{
	Use:   "decode-transfer",
	Short: "Decode a token transfer payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		payloadHex, _ := cmd.Flags().GetString("payload")

		raw, err := hex.DecodeString(payloadHex)
		if err != nil {
			return fmt.Errorf("invalid payload hex: %w", err)
		}
		p, err := payload.Parse(raw)
		if err != nil {
			return err
		}
		xfer, ok := p.(*payload.Transfer)
		if !ok {
			return fmt.Errorf("not a transfer payload: %T", p)
		}

		to, err := omni.IDToAddress(xfer.To)
		if err != nil {
			fmt.Printf("To (ID): %s\n", xfer.To)
		} else {
			fmt.Printf("To:      %s\n", to.Hex())
		}
		fmt.Printf("Amount:  %s\n", xfer.Amount.Dec())
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an attestor key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Printf("Private key: %s\n", hex.EncodeToString(crypto.FromECDSA(key)))
		fmt.Printf("Address:     %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a two-ledger bridge demo in-process",
	Long: `Run two in-process ledgers bridged by a relayer, transfer tokens from
ledger 1 to ledger 2 and print the resulting balances and events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		amountStr, _ := cmd.Flags().GetString("amount")
		amount, err := uint256.FromDecimal(amountStr)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amountStr, err)
		}
		return runDemo(cmd.Context(), amount)
	},
}

const (
	demoChainA omni.ChainID = 1
	demoChainB omni.ChainID = 2
)

var (
	demoHubAddress   = common.HexToAddress("0x0100000000000000000000000000000000000001")
	demoOwner        = common.HexToAddress("0x0200000000000000000000000000000000000002")
	demoTokenAddress = common.HexToAddress("0x0300000000000000000000000000000000000003")
)

type demoLedger struct {
	chainID omni.ChainID
	events  *events.Log
	hub     *endpoint.Endpoint
	token   *token.Token
}

func newDemoLedger(chainID omni.ChainID, name, symbol string) (*demoLedger, error) {
	eventLog := events.NewLog(chainID, log.NoLog{})
	hub, err := endpoint.New(endpoint.Config{
		ChainID: chainID,
		Address: demoHubAddress,
		Owner:   demoOwner,
		Events:  eventLog,
	})
	if err != nil {
		return nil, err
	}
	tok, err := token.New(token.Config{
		Endpoint: hub,
		Address:  demoTokenAddress,
		Admin:    demoOwner,
		Name:     name,
		Symbol:   symbol,
		Decimals: 18,
		Events:   eventLog,
	})
	if err != nil {
		return nil, err
	}
	return &demoLedger{
		chainID: chainID,
		events:  eventLog,
		hub:     hub,
		token:   tok,
	}, nil
}

func runDemo(ctx context.Context, amount *uint256.Int) error {
	ledgerA, err := newDemoLedger(demoChainA, "Omni Token A", "OMNIA")
	if err != nil {
		return err
	}
	ledgerB, err := newDemoLedger(demoChainB, "Omni Token B", "OMNIB")
	if err != nil {
		return err
	}

	// Mirror-image peer tables plus issuance and roles on the sending side.
	if err := ledgerA.token.App().SetPeer(demoOwner, demoChainB, ledgerB.token.App().ID()); err != nil {
		return err
	}
	if err := ledgerB.token.App().SetPeer(demoOwner, demoChainA, ledgerA.token.App().ID()); err != nil {
		return err
	}
	if err := ledgerA.token.Mint(demoOwner, demoOwner, uint256.NewInt(1_000_000)); err != nil {
		return err
	}
	if err := ledgerA.token.App().GrantSender(demoOwner, demoOwner); err != nil {
		return err
	}

	executor, err := relayer.NewExecutor(demoChainB, ledgerB.hub.Address(), log.NoLog{}, nil)
	if err != nil {
		return err
	}
	if err := executor.RegisterApp(ledgerB.token.App().ID(), ledgerB.token.App()); err != nil {
		return err
	}
	if err := ledgerB.hub.SetDeliveryAgent(demoOwner, demoChainA, executor); err != nil {
		return err
	}

	r, err := relayer.New(relayer.Config{
		SourceEvents: ledgerA.events,
		DestChain:    demoChainB,
		Submitter:    relayer.NewHubSubmitter(ledgerB.hub),
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = r.Run(runCtx)
	}()

	guid, err := ledgerA.token.Send(
		ctx,
		demoOwner,
		demoChainB,
		omni.AddressToID(demoOwner),
		amount,
		0,
		0,
	)
	if err != nil {
		return err
	}
	fmt.Printf("Sent %s OMNIA from ledger %s to ledger %s\n", amount.Dec(), demoChainA, demoChainB)
	fmt.Printf("GUID: %s\n\n", hex.EncodeToString(guid[:]))

	if err := waitForMint(ctx, ledgerB.token, guid); err != nil {
		return err
	}

	fmt.Printf("Balance on ledger %s: %s\n", demoChainA, ledgerA.token.BalanceOf(demoOwner).Dec())
	fmt.Printf("Balance on ledger %s: %s\n\n", demoChainB, ledgerB.token.BalanceOf(demoOwner).Dec())

	fmt.Println("Events on ledger 1:")
	printEvents(ledgerA.events)
	fmt.Println("Events on ledger 2:")
	printEvents(ledgerB.events)
	return nil
}

func waitForMint(ctx context.Context, tok *token.Token, guid ids.ID) error {
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("timed out waiting for transfer %s to mint", guid)
		case <-tick.C:
			if tok.Minted(guid) {
				return nil
			}
		}
	}
}

func printEvents(eventLog *events.Log) {
	for _, rec := range eventLog.Entries(0) {
		fmt.Printf("  %4d %s\n", rec.Seq, rec.Event.Type())
	}
}

// parseID accepts a 20-byte hex address or a 32-byte hex identifier
func parseID(s string) (ids.ID, error) {
	if common.IsHexAddress(s) {
		return omni.AddressToID(common.HexToAddress(s)), nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ids.ID{}, err
	}
	if len(raw) != len(ids.ID{}) {
		return ids.ID{}, fmt.Errorf("expected %d bytes, got %d", len(ids.ID{}), len(raw))
	}
	var id ids.ID
	copy(id[:], raw)
	return id, nil
}
