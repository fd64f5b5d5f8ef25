// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package dvn

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/ids"

	"github.com/luxfi/omni"
)

// AttestationLen is the length of one ECDSA attestation, [R || S || V].
const AttestationLen = 65

var (
	ErrNilKey     = fmt.Errorf("%w: nil attestor key", omni.ErrInvalidArgument)
	ErrWrongChain = fmt.Errorf("%w: message is not from the attestor's chain", omni.ErrInvalidArgument)
)

// Attestor holds a secp256k1 key bound to one chain and produces attestations
// over messages observed there. An attestor refuses to sign for any other
// chain, so a compromised relay cannot farm proofs for foreign traffic.
type Attestor struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chain   omni.ChainID
}

// NewAttestor binds key to chain
func NewAttestor(key *ecdsa.PrivateKey, chain omni.ChainID) (*Attestor, error) {
	if key == nil {
		return nil, ErrNilKey
	}
	if chain == 0 {
		return nil, omni.ErrZeroChain
	}
	return &Attestor{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chain:   chain,
	}, nil
}

// GenerateAttestor creates an attestor with a fresh key
func GenerateAttestor(chain omni.ChainID) (*Attestor, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestor key: %w", err)
	}
	return NewAttestor(key, chain)
}

// Attest signs the digest of a message from the attestor's chain
func (a *Attestor) Attest(originChain omni.ChainID, guid ids.ID, payload []byte) ([]byte, error) {
	if originChain != a.chain {
		return nil, fmt.Errorf("%w: %s != %s", ErrWrongChain, originChain, a.chain)
	}

	digest := SigningDigest(originChain, guid, payload)
	sig, err := crypto.Sign(digest[:], a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return sig, nil
}

// Address returns the signer address attestations recover to
func (a *Attestor) Address() common.Address {
	return a.address
}

// Chain returns the chain the attestor signs for
func (a *Attestor) Chain() omni.ChainID {
	return a.chain
}
