// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package dvn

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"

	"github.com/luxfi/omni"
)

var (
	ErrEmptyCommittee     = errors.New("empty committee")
	ErrNilMember          = errors.New("nil committee member")
	ErrZeroWeight         = errors.New("committee member has zero weight")
	ErrDupMember          = errors.New("duplicate committee member public key")
	ErrNoAggregateSigners = errors.New("aggregate attestation has no signers")
	ErrUnknownSigner      = errors.New("signer key is not a committee member")
	ErrInvalidAggregate   = errors.New("invalid aggregate signature")
	ErrInsufficientWeight = errors.New("insufficient signed weight")
	ErrInvalidQuorum      = errors.New("invalid quorum fraction")
)

// Default stake-weight quorum for aggregate attestations
const (
	DefaultQuorumNum = 67
	DefaultQuorumDen = 100
)

// Member is one committee participant: a BLS public key and its weight.
type Member struct {
	PublicKey      *bls.PublicKey
	PublicKeyBytes []byte
	Weight         uint64
}

// NewMember creates a Member from a public key and weight
func NewMember(pk *bls.PublicKey, weight uint64) *Member {
	return &Member{
		PublicKey:      pk,
		PublicKeyBytes: bls.PublicKeyToCompressedBytes(pk),
		Weight:         weight,
	}
}

// Less orders members by compressed public key
func (m *Member) Less(other *Member) bool {
	return bytes.Compare(m.PublicKeyBytes, other.PublicKeyBytes) < 0
}

// Committee is the canonical ordering of an attestor committee. The bitset in
// an aggregate attestation indexes into this ordering, so both sides must
// derive it from the same member list.
type Committee struct {
	members     []*Member
	totalWeight uint64
}

// NewCommittee canonicalizes members by public key
func NewCommittee(members []*Member) (*Committee, error) {
	if len(members) == 0 {
		return nil, ErrEmptyCommittee
	}

	seen := make(map[string]bool, len(members))
	var totalWeight uint64
	for _, m := range members {
		if m == nil || m.PublicKey == nil {
			return nil, ErrNilMember
		}
		if m.Weight == 0 {
			return nil, ErrZeroWeight
		}
		key := string(m.PublicKeyBytes)
		if seen[key] {
			return nil, fmt.Errorf("%w: %x", ErrDupMember, m.PublicKeyBytes)
		}
		seen[key] = true

		newWeight, err := omni.AddUint64(totalWeight, m.Weight)
		if err != nil {
			return nil, fmt.Errorf("total weight overflow: %w", err)
		}
		totalWeight = newWeight
	}

	sorted := make([]*Member, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Less(sorted[j])
	})

	return &Committee{
		members:     sorted,
		totalWeight: totalWeight,
	}, nil
}

// Members returns the committee in canonical order
func (c *Committee) Members() []*Member {
	return c.members
}

// TotalWeight returns the summed weight of all members
func (c *Committee) TotalWeight() uint64 {
	return c.totalWeight
}

// Len returns the number of members
func (c *Committee) Len() int {
	return len(c.members)
}

// IndexOf returns the canonical index of the member holding pk
func (c *Committee) IndexOf(pk *bls.PublicKey) (int, bool) {
	pkBytes := bls.PublicKeyToCompressedBytes(pk)
	for i, m := range c.members {
		if bytes.Equal(m.PublicKeyBytes, pkBytes) {
			return i, true
		}
	}
	return 0, false
}

// AggregateAttestation is an aggregated BLS attestation over a message
// digest, with a bitset recording which committee members contributed.
type AggregateAttestation struct {
	Signers   omni.Bits
	Signature [bls.SignatureLen]byte
}

// SignedWeight returns the summed weight of the members in the signer bitset
func (a *AggregateAttestation) SignedWeight(c *Committee) (uint64, error) {
	if a.Signers.BitLen() > bitsetCapacity(c.Len()) {
		return 0, fmt.Errorf("%w: bitset length %d exceeds committee size %d",
			ErrUnknownSigner, a.Signers.BitLen(), c.Len())
	}

	var weight uint64
	for i := 0; i < a.Signers.BitLen(); i++ {
		if !a.Signers.Contains(i) {
			continue
		}
		if i >= c.Len() {
			return 0, fmt.Errorf("%w: index %d of %d", ErrUnknownSigner, i, c.Len())
		}
		newWeight, err := omni.AddUint64(weight, c.members[i].Weight)
		if err != nil {
			return 0, fmt.Errorf("signed weight overflow: %w", err)
		}
		weight = newWeight
	}
	return weight, nil
}

// Verify checks the aggregate signature over msg against the committee
// members in the signer bitset. Quorum is not checked here; see
// CommitteeVerifier.
func (a *AggregateAttestation) Verify(msg []byte, c *Committee) error {
	if a.Signers.Len() == 0 {
		return ErrNoAggregateSigners
	}
	if a.Signers.BitLen() > bitsetCapacity(c.Len()) {
		return fmt.Errorf("%w: bitset length %d exceeds committee size %d",
			ErrUnknownSigner, a.Signers.BitLen(), c.Len())
	}

	pks := make([]*bls.PublicKey, 0, a.Signers.Len())
	for i := 0; i < a.Signers.BitLen(); i++ {
		if !a.Signers.Contains(i) {
			continue
		}
		if i >= c.Len() {
			return fmt.Errorf("%w: index %d of %d", ErrUnknownSigner, i, c.Len())
		}
		pks = append(pks, c.members[i].PublicKey)
	}

	aggPK, err := bls.AggregatePublicKeys(pks)
	if err != nil {
		return fmt.Errorf("failed to aggregate public keys: %w", err)
	}
	sig, err := bls.SignatureFromBytes(a.Signature[:])
	if err != nil {
		return fmt.Errorf("failed to parse aggregate signature: %w", err)
	}
	if !bls.Verify(aggPK, sig, msg) {
		return ErrInvalidAggregate
	}
	return nil
}

// Equal reports whether two attestations carry the same signers and signature
func (a *AggregateAttestation) Equal(other *AggregateAttestation) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Signers.Equal(other.Signers) && a.Signature == other.Signature
}

// SignAggregate signs the digest of one delivery with each secret key and
// aggregates the partial signatures into a single attestation. Every key must
// belong to a committee member.
func SignAggregate(
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
	keys []*bls.SecretKey,
	c *Committee,
) (*AggregateAttestation, error) {
	if len(keys) == 0 {
		return nil, ErrNoAggregateSigners
	}

	digest := SigningDigest(originChain, guid, payload)

	signerBits := omni.NewBitSet()
	sigs := make([]*bls.Signature, 0, len(keys))
	for _, sk := range keys {
		index, ok := c.IndexOf(sk.PublicKey())
		if !ok {
			return nil, ErrUnknownSigner
		}
		if signerBits.Contains(index) {
			continue
		}
		sig, err := sk.Sign(digest[:])
		if err != nil {
			return nil, fmt.Errorf("failed to sign digest: %w", err)
		}
		signerBits.Add(index)
		sigs = append(sigs, sig)
	}

	aggSig, err := bls.AggregateSignatures(sigs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate signatures: %w", err)
	}

	att := &AggregateAttestation{Signers: signerBits}
	copy(att.Signature[:], bls.SignatureToBytes(aggSig))
	return att, nil
}

// CommitteeVerifier checks aggregate attestations against a committee and a
// stake-weight quorum fraction.
type CommitteeVerifier struct {
	committee *Committee
	quorumNum uint64
	quorumDen uint64
}

// NewCommitteeVerifier creates a verifier requiring quorumNum/quorumDen of
// the committee's total weight.
func NewCommitteeVerifier(c *Committee, quorumNum, quorumDen uint64) (*CommitteeVerifier, error) {
	if c == nil {
		return nil, ErrEmptyCommittee
	}
	if quorumDen == 0 || quorumNum == 0 || quorumNum > quorumDen {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidQuorum, quorumNum, quorumDen)
	}
	return &CommitteeVerifier{
		committee: c,
		quorumNum: quorumNum,
		quorumDen: quorumDen,
	}, nil
}

// Verify checks both the aggregate signature and the weight quorum for one
// delivery. The comparison signedWeight * den >= totalWeight * num avoids
// integer division of the threshold.
func (v *CommitteeVerifier) Verify(
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
	att *AggregateAttestation,
) error {
	if att == nil {
		return ErrNoAggregateSigners
	}

	digest := SigningDigest(originChain, guid, payload)
	if err := att.Verify(digest[:], v.committee); err != nil {
		return err
	}

	signedWeight, err := att.SignedWeight(v.committee)
	if err != nil {
		return err
	}
	if err := omni.CheckMulDoesNotOverflow(signedWeight, v.quorumDen); err != nil {
		return fmt.Errorf("signed weight overflow: %w", err)
	}
	if err := omni.CheckMulDoesNotOverflow(v.committee.TotalWeight(), v.quorumNum); err != nil {
		return fmt.Errorf("total weight overflow: %w", err)
	}
	if signedWeight*v.quorumDen < v.committee.TotalWeight()*v.quorumNum {
		return fmt.Errorf("%w: %d/%d signed, need %d/%d",
			ErrInsufficientWeight,
			signedWeight, v.committee.TotalWeight(),
			v.quorumNum, v.quorumDen,
		)
	}
	return nil
}

// Committee returns the verifier's committee
func (v *CommitteeVerifier) Committee() *Committee {
	return v.committee
}

// bitsetCapacity rounds a committee size up to the bit capacity of the byte
// slice that backs a bitset of that size.
func bitsetCapacity(n int) int {
	return (n + 7) / 8 * 8
}
