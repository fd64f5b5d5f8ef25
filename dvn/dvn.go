// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dvn implements the verification service consulted by relays before
// they submit a delivery. Verification runs off the send/receive path: an
// attestor signs the digest of a message observed on its own chain, and the
// destination side checks the collected proofs against a registered signer
// set. Two proof families exist over the same digest, individual ECDSA
// attestations and aggregated BLS committee attestations.
package dvn

import (
	"encoding/binary"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/ids"

	"github.com/luxfi/omni"
)

// SigningDigest returns the digest attestors sign for one delivery:
// keccak256(keccak256(originChain(4) || guid(32) || payload)). Any party can
// recompute it from the relay arguments alone.
func SigningDigest(originChain omni.ChainID, guid ids.ID, payload []byte) common.Hash {
	buf := make([]byte, 4+32+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(originChain))
	copy(buf[4:], guid[:])
	copy(buf[36:], payload)

	inner := crypto.Keccak256Hash(buf)
	return crypto.Keccak256Hash(inner[:])
}
