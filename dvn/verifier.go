// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package dvn

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/ids"
	log "github.com/luxfi/log"

	"github.com/luxfi/omni"
	"github.com/luxfi/omni/endpoint"
)

var (
	ErrNotOwner     = fmt.Errorf("%w: caller is not the verifier owner", omni.ErrUnauthorized)
	ErrNoSigners    = fmt.Errorf("%w: empty signer set", omni.ErrInvalidArgument)
	ErrZeroSigner   = fmt.Errorf("%w: zero signer address", omni.ErrInvalidArgument)
	ErrDupSigner    = fmt.Errorf("%w: duplicate signer address", omni.ErrInvalidArgument)
	ErrBadThreshold = fmt.Errorf("%w: threshold outside [1, len(signers)]", omni.ErrInvalidArgument)
)

// Quorum returns the default verification threshold for a signer set of n,
// the smallest count strictly greater than two thirds.
func Quorum(n int) int {
	return n*2/3 + 1
}

// Config parameterizes one Verifier
type Config struct {
	// Owner may rebind the signer set and threshold
	Owner common.Address
	// Signers is the registered attestor set, in registration order
	Signers []common.Address
	// Threshold is the number of distinct registered attestations required.
	// Zero defaults to Quorum(len(Signers)).
	Threshold int
	// Log defaults to a no-op logger when nil
	Log log.Logger
}

// Verifier checks ECDSA attestations against a registered signer set. The
// boolean surface fails closed: malformed or unknown proofs count for
// nothing, they never abort the check.
type Verifier struct {
	owner common.Address
	log   log.Logger

	lock      sync.RWMutex
	signers   []common.Address
	index     map[common.Address]int
	threshold int
}

var _ endpoint.Verifier = (*Verifier)(nil)

// NewVerifier creates a Verifier over cfg.Signers
func NewVerifier(cfg Config) (*Verifier, error) {
	if omni.IsZeroAddress(cfg.Owner) {
		return nil, fmt.Errorf("%w: zero owner address", omni.ErrInvalidArgument)
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.NoLog{}
	}
	v := &Verifier{
		owner: cfg.Owner,
		log:   logger,
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = Quorum(len(cfg.Signers))
	}
	if err := v.rebind(cfg.Signers, threshold); err != nil {
		return nil, err
	}
	return v, nil
}

// Verify reports whether sigs carries at least threshold attestations over
// the message digest, each recovering to a distinct registered signer.
// Implements the hub's verifier surface; the error result is always nil.
func (v *Verifier) Verify(
	_ context.Context,
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
	sigs [][]byte,
) (bool, error) {
	v.lock.RLock()
	index := v.index
	threshold := v.threshold
	v.lock.RUnlock()

	digest := SigningDigest(originChain, guid, payload)

	seen := make(map[common.Address]struct{}, len(sigs))
	count := 0
	for _, sig := range sigs {
		if len(sig) != AttestationLen {
			v.log.Debug("dropping malformed attestation", log.Int("len", len(sig)))
			continue
		}
		pub, err := crypto.SigToPub(digest[:], sig)
		if err != nil {
			v.log.Debug("dropping unrecoverable attestation", log.Err(err))
			continue
		}
		signer := crypto.PubkeyToAddress(*pub)
		if _, ok := index[signer]; !ok {
			v.log.Debug("dropping attestation from unregistered signer",
				log.Stringer("signer", signer),
			)
			continue
		}
		if _, dup := seen[signer]; dup {
			v.log.Debug("dropping duplicate attestation",
				log.Stringer("signer", signer),
			)
			continue
		}
		seen[signer] = struct{}{}
		count++
	}

	return count >= threshold, nil
}

// SetSigners rebinds the signer set. Owner only; the threshold resets to
// Quorum over the new set.
func (v *Verifier) SetSigners(caller common.Address, signers []common.Address) error {
	if caller != v.owner {
		return ErrNotOwner
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	if err := v.rebind(signers, Quorum(len(signers))); err != nil {
		return err
	}
	v.log.Info("signer set rebound", log.Int("signers", len(signers)))
	return nil
}

// SetThreshold rebinds the attestation threshold. Owner only.
func (v *Verifier) SetThreshold(caller common.Address, threshold int) error {
	if caller != v.owner {
		return ErrNotOwner
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	if threshold < 1 || threshold > len(v.signers) {
		return fmt.Errorf("%w: %d of %d", ErrBadThreshold, threshold, len(v.signers))
	}
	v.threshold = threshold
	v.log.Info("verification threshold rebound", log.Int("threshold", threshold))
	return nil
}

// rebind validates and installs a signer set. Callers hold v.lock when the
// verifier is shared.
func (v *Verifier) rebind(signers []common.Address, threshold int) error {
	if len(signers) == 0 {
		return ErrNoSigners
	}
	index := make(map[common.Address]int, len(signers))
	for i, s := range signers {
		if omni.IsZeroAddress(s) {
			return fmt.Errorf("%w at index %d", ErrZeroSigner, i)
		}
		if _, ok := index[s]; ok {
			return fmt.Errorf("%w: %s", ErrDupSigner, s)
		}
		index[s] = i
	}
	if threshold < 1 || threshold > len(signers) {
		return fmt.Errorf("%w: %d of %d", ErrBadThreshold, threshold, len(signers))
	}

	v.signers = append([]common.Address(nil), signers...)
	v.index = index
	v.threshold = threshold
	return nil
}

// Signers returns the registered signer set in registration order
func (v *Verifier) Signers() []common.Address {
	v.lock.RLock()
	defer v.lock.RUnlock()

	return append([]common.Address(nil), v.signers...)
}

// Threshold returns the required attestation count
func (v *Verifier) Threshold() int {
	v.lock.RLock()
	defer v.lock.RUnlock()

	return v.threshold
}

// Owner returns the verifier's administrative account
func (v *Verifier) Owner() common.Address {
	return v.owner
}
