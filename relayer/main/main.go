// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// omni-relayer runs a two-ledger bridge sandbox: a hub, a bridged token and
// an attestor committee per ledger, with a relayer in each direction moving
// messages between them.
package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/dvn"
	"github.com/luxfi/omni/endpoint"
	"github.com/luxfi/omni/events"
	"github.com/luxfi/omni/relayer"
	"github.com/luxfi/omni/relayer/api"
	"github.com/luxfi/omni/relayer/config"
	"github.com/luxfi/omni/token"
)

var version = "v0.0.0-dev"

// Hub and token accounts are fixed across both ledgers. The token sharing
// one address everywhere makes each instance its own peer on the other
// ledger, which is what the application's peer check expects.
var (
	hubAddress   = common.HexToAddress("0x0100000000000000000000000000000000000001")
	tokenAddress = common.HexToAddress("0x0300000000000000000000000000000000000003")
)

// ledger bundles everything one chain runs in-process
type ledger struct {
	chainID omni.ChainID
	events  *events.Log
	hub     *endpoint.Endpoint
	token   *token.Token
}

type tokensByChain map[omni.ChainID]*token.Token

func (m tokensByChain) Token(chain omni.ChainID) (*token.Token, bool) {
	tok, ok := m[chain]
	return tok, ok
}

func main() {
	cfg := buildConfig()

	logLevel, err := log.ToLevel(cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("error reading log level from config: %s", err)
	}
	logger := log.NewLogger(
		"omni-relayer",
		*log.NewWrappedCore(
			logLevel,
			os.Stdout,
			log.JSON.ConsoleEncoder(),
		),
	)
	logger.Info("Initializing omni-relayer")

	owner := cfg.OwnerAddress()

	ledgerA, err := newLedger(logger, cfg.ChainA, owner)
	if err != nil {
		logger.Fatal("Failed to create ledger", log.Uint64("chainID", uint64(cfg.ChainA.ChainID)), log.Err(err))
		os.Exit(1)
	}
	ledgerB, err := newLedger(logger, cfg.ChainB, owner)
	if err != nil {
		logger.Fatal("Failed to create ledger", log.Uint64("chainID", uint64(cfg.ChainB.ChainID)), log.Err(err))
		os.Exit(1)
	}

	if err := bridge(ledgerA, ledgerB, owner); err != nil {
		logger.Fatal("Failed to bridge ledgers", log.Err(err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := relayer.NewMetrics(registry)

	relayerAB, err := wireDirection(logger, metrics, &cfg, ledgerA, ledgerB, owner)
	if err != nil {
		logger.Fatal("Failed to wire relay direction", log.Err(err))
		os.Exit(1)
	}
	relayerBA, err := wireDirection(logger, metrics, &cfg, ledgerB, ledgerA, owner)
	if err != nil {
		logger.Fatal("Failed to wire relay direction", log.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		return ignoreCancelled(relayerAB.Run(ctx))
	})
	errGroup.Go(func() error {
		return ignoreCancelled(relayerBA.Run(ctx))
	})

	apiMux := http.NewServeMux()
	api.RegisterHandlers(logger, apiMux, tokensByChain{
		ledgerA.chainID: ledgerA.token,
		ledgerB.chainID: ledgerB.token,
	})
	errGroup.Go(func() error {
		return serve(ctx, logger, "api", cfg.APIPort, apiMux)
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	errGroup.Go(func() error {
		return serve(ctx, logger, "metrics", cfg.MetricsPort, metricsMux)
	})

	logger.Info("Initialization complete")
	if err := errGroup.Wait(); err != nil {
		logger.Error("Relayer exiting.", log.Err(err))
		os.Exit(1)
	}
	logger.Info("Relayer exiting.")
}

// newLedger builds one chain's hub and token and mints the initial supply to
// the owner
func newLedger(logger log.Logger, cfg config.ChainConfig, owner common.Address) (*ledger, error) {
	chainID := omni.ChainID(cfg.ChainID)
	eventLog := events.NewLog(chainID, logger)

	hub, err := endpoint.New(endpoint.Config{
		ChainID: chainID,
		Address: hubAddress,
		Owner:   owner,
		Log:     logger,
		Events:  eventLog,
	})
	if err != nil {
		return nil, err
	}

	tok, err := token.New(token.Config{
		Endpoint: hub,
		Address:  tokenAddress,
		Admin:    owner,
		Name:     cfg.TokenName,
		Symbol:   cfg.TokenSymbol,
		Decimals: 18,
		Log:      logger,
		Events:   eventLog,
	})
	if err != nil {
		return nil, err
	}

	if cfg.InitialSupply > 0 {
		if err := tok.Mint(owner, owner, uint256.NewInt(cfg.InitialSupply)); err != nil {
			return nil, err
		}
	}
	if err := tok.App().GrantSender(owner, owner); err != nil {
		return nil, err
	}

	logger.Info("Ledger initialized",
		log.Stringer("chainID", chainID),
		log.String("token", cfg.TokenSymbol),
	)
	return &ledger{
		chainID: chainID,
		events:  eventLog,
		hub:     hub,
		token:   tok,
	}, nil
}

// bridge points each token's peer table at its counterpart on the other
// ledger
func bridge(a, b *ledger, owner common.Address) error {
	if err := a.token.App().SetPeer(owner, b.chainID, b.token.App().ID()); err != nil {
		return err
	}
	return b.token.App().SetPeer(owner, a.chainID, a.token.App().ID())
}

// wireDirection sets up the source -> dest relay path: an attestor committee
// on the source, a verifier and executor on the destination, and the relayer
// tailing the source event log.
func wireDirection(
	logger log.Logger,
	metrics *relayer.Metrics,
	cfg *config.Config,
	source, dest *ledger,
	owner common.Address,
) (*relayer.Relayer, error) {
	attestors := make([]*dvn.Attestor, cfg.AttestorCount)
	signers := make([]common.Address, cfg.AttestorCount)
	for i := range attestors {
		attestor, err := dvn.GenerateAttestor(source.chainID)
		if err != nil {
			return nil, err
		}
		attestors[i] = attestor
		signers[i] = attestor.Address()
	}

	verifier, err := dvn.NewVerifier(dvn.Config{
		Owner:     owner,
		Signers:   signers,
		Threshold: cfg.AttestorThreshold,
		Log:       logger,
	})
	if err != nil {
		return nil, err
	}
	if err := dest.hub.SetVerifier(owner, source.chainID, verifier); err != nil {
		return nil, err
	}
	if err := dest.hub.SetMinVerifications(owner, uint64(verifier.Threshold())); err != nil {
		return nil, err
	}

	executor, err := relayer.NewExecutor(dest.chainID, dest.hub.Address(), logger, metrics)
	if err != nil {
		return nil, err
	}
	if err := executor.RegisterApp(dest.token.App().ID(), dest.token.App()); err != nil {
		return nil, err
	}
	if err := dest.hub.SetDeliveryAgent(owner, source.chainID, executor); err != nil {
		return nil, err
	}

	return relayer.New(relayer.Config{
		SourceEvents:  source.events,
		DestChain:     dest.chainID,
		Submitter:     relayer.NewHubSubmitter(dest.hub),
		Attestors:     attestors,
		Verifier:      verifier,
		SubmitTimeout: time.Duration(cfg.SubmitTimeoutSeconds) * time.Second,
		Log:           logger,
		Metrics:       metrics,
	})
}

// serve runs one HTTP listener until ctx is cancelled
func serve(ctx context.Context, logger log.Logger, name string, port uint16, handler http.Handler) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving HTTP", log.String("server", name), log.Uint64("port", uint64(port)))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server exited: %w", name, err)
	}
	return nil
}

func ignoreCancelled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildConfig parses the flags and builds the config
// Errors here should call log.Fatalf to exit the program
// since these errors are prior to building the logger struct
func buildConfig() config.Config {
	fs := config.BuildFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		config.DisplayUsageText()
		stdlog.Fatalf("couldn't parse flags: %s", err)
	}
	// If the version flag is set, display the version then exit
	displayVersion, err := fs.GetBool(config.VersionKey)
	if err != nil {
		stdlog.Fatalf("error reading %s flag value: %s", config.VersionKey, err)
	}
	if displayVersion {
		fmt.Printf("%s\n", version)
		os.Exit(0)
	}
	// If the help flag is set, output the usage text then exit
	help, err := fs.GetBool(config.HelpKey)
	if err != nil {
		stdlog.Fatalf("error reading %s flag value: %s", config.HelpKey, err)
	}
	if help {
		config.DisplayUsageText()
		os.Exit(0)
	}

	v, err := config.BuildViper(fs)
	if err != nil {
		stdlog.Fatalf("couldn't configure flags: %s", err)
	}

	cfg, err := config.NewConfig(v)
	if err != nil {
		stdlog.Fatalf("couldn't build config: %s", err)
	}
	return cfg
}
