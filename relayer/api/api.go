// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api exposes the omni-relayer daemon's HTTP surface: a health
// probe, token balance reads and cross-chain transfer submission.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/token"
)

const (
	HealthAPIPath   = "/health"
	BalanceAPIPath  = "/v1/balance"
	TransferAPIPath = "/v1/transfer"

	defaultTransferTimeout = 30 * time.Second
)

// TransferRequest submits a cross-chain token transfer
type TransferRequest struct {
	// SourceChain is the ledger the tokens leave from
	SourceChain uint32 `json:"source-chain"`
	// DestinationChain is the ledger the tokens arrive on
	DestinationChain uint32 `json:"destination-chain"`
	// From is the hex-encoded account burned on the source ledger
	From string `json:"from"`
	// To is the hex-encoded account minted on the destination ledger
	To string `json:"to"`
	// Amount is the decimal token amount
	Amount string `json:"amount"`
	// Fee is attached to the underlying message send
	Fee uint64 `json:"fee"`
}

type TransferResponse struct {
	// GUID is the hex encoding of the message identifier
	GUID string `json:"guid"`
}

type BalanceResponse struct {
	Chain   uint32 `json:"chain"`
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Tokens resolves the bridged token instance of one ledger
type Tokens interface {
	Token(chain omni.ChainID) (*token.Token, bool)
}

// RegisterHandlers binds every API route on mux
func RegisterHandlers(logger log.Logger, mux *http.ServeMux, tokens Tokens) {
	mux.Handle(HealthAPIPath, healthAPIHandler())
	mux.Handle(BalanceAPIPath, balanceAPIHandler(logger, tokens))
	mux.Handle(TransferAPIPath, transferAPIHandler(logger, tokens))
}

func writeJSONError(
	logger log.Logger,
	w http.ResponseWriter,
	httpStatusCode int,
	errorMsg string,
) {
	resp, err := json.Marshal(ErrorResponse{Error: errorMsg})
	if err != nil {
		msg := "Error marshalling JSON error response"
		logger.Error(msg, log.Err(err))
		resp = []byte(msg)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)

	if _, err = w.Write(resp); err != nil {
		logger.Error("Error writing error response", log.Err(err))
	}
}

func writeJSON(logger log.Logger, w http.ResponseWriter, body any) {
	resp, err := json.Marshal(body)
	if err != nil {
		msg := "Failed to marshal response"
		logger.Error(msg, log.Err(err))
		writeJSONError(logger, w, http.StatusInternalServerError, msg)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(resp); err != nil {
		logger.Error("Error writing response", log.Err(err))
	}
}

func healthAPIHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

func balanceAPIHandler(logger log.Logger, tokens Tokens) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chainStr := r.URL.Query().Get("chain")
		chainNum, err := strconv.ParseUint(chainStr, 10, 32)
		if err != nil {
			msg := "Could not parse chain"
			logger.Warn(msg, log.String("chain", chainStr), log.Err(err))
			writeJSONError(logger, w, http.StatusBadRequest, msg)
			return
		}

		addressStr := r.URL.Query().Get("address")
		if !common.IsHexAddress(addressStr) {
			msg := "Could not parse address"
			logger.Warn(msg, log.String("address", addressStr))
			writeJSONError(logger, w, http.StatusBadRequest, msg)
			return
		}

		tok, ok := tokens.Token(omni.ChainID(chainNum))
		if !ok {
			msg := "Unknown chain"
			logger.Warn(msg, log.String("chain", chainStr))
			writeJSONError(logger, w, http.StatusNotFound, msg)
			return
		}

		address := common.HexToAddress(addressStr)
		writeJSON(logger, w, BalanceResponse{
			Chain:   uint32(chainNum),
			Address: address.Hex(),
			Balance: tok.BalanceOf(address).Dec(),
		})
	})
}

func transferAPIHandler(logger log.Logger, tokens Tokens) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(logger, w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		var req TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			msg := "Could not decode request body"
			logger.Warn(msg, log.Err(err))
			writeJSONError(logger, w, http.StatusBadRequest, msg)
			return
		}

		if !common.IsHexAddress(req.From) || !common.IsHexAddress(req.To) {
			writeJSONError(logger, w, http.StatusBadRequest, "Could not parse from/to address")
			return
		}
		amount, err := uint256.FromDecimal(req.Amount)
		if err != nil {
			msg := "Could not parse amount"
			logger.Warn(msg, log.String("amount", req.Amount), log.Err(err))
			writeJSONError(logger, w, http.StatusBadRequest, msg)
			return
		}

		tok, ok := tokens.Token(omni.ChainID(req.SourceChain))
		if !ok {
			writeJSONError(logger, w, http.StatusNotFound, "Unknown source chain")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), defaultTransferTimeout)
		defer cancel()

		guid, err := tok.Send(
			ctx,
			common.HexToAddress(req.From),
			omni.ChainID(req.DestinationChain),
			omni.AddressToID(common.HexToAddress(req.To)),
			amount,
			req.Fee,
			req.Fee,
		)
		if err != nil {
			logger.Warn("Failed to send transfer", log.Err(err))
			msg := fmt.Errorf("failed to send transfer. error: %w", err).Error()
			writeJSONError(logger, w, transferStatusCode(err), msg)
			return
		}

		writeJSON(logger, w, TransferResponse{
			GUID: hex.EncodeToString(guid[:]),
		})
	})
}

// transferStatusCode maps a send failure to an HTTP status
func transferStatusCode(err error) int {
	switch {
	case errors.Is(err, omni.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, omni.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, omni.ErrPaused):
		return http.StatusConflict
	case errors.Is(err, omni.ErrNotConfigured):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
