package safe

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Signature packing for Safe execTransaction. The contract verifies the
// signature blob as a flat concatenation of 65 byte r||s||v entries sorted
// ascending by signer address, so every blob handed to the chain must be
// built through OrderSignatures or EncodeSignatures.

const SignatureLength = 65

type SignatureType string

const (
	SignatureTypeEOA          SignatureType = "EOA"
	SignatureTypeEthSign      SignatureType = "ETH_SIGN"
	SignatureTypeApprovedHash SignatureType = "APPROVED_HASH"
)

type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

func (sig Signature) EncodeRSV() []byte {
	b := make([]byte, 0, SignatureLength)
	b = append(b, sig.R[:]...)
	b = append(b, sig.S[:]...)
	b = append(b, sig.V)
	return b
}

// PreApproved returns true when the signature is the approved-hash sentinel
// form, which carries the approving owner address instead of an ECDSA point.
func (sig Signature) PreApproved() bool {
	return sig.V == 1
}

// PreApprovedSignature builds the sentinel signature for an owner whose
// approval is recorded on chain, e.g. the submitting caller of
// execTransaction. The owner address is left padded into r, s is zero and
// v is 1.
func PreApprovedSignature(owner common.Address) Signature {
	var sig Signature
	copy(sig.R[12:], owner.Bytes())
	sig.V = 1
	return sig
}

func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != SignatureLength {
		return nil, fmt.Errorf("invalid signature length %d", len(b))
	}
	var sig Signature
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	sig.V = b[64]
	return &sig, nil
}

// OrderSignatures sorts the signatures ascending by the signer address
// interpreted as a big endian integer. The result is a pure function of the
// signer set, independent of map iteration order.
func OrderSignatures(signatures map[common.Address]Signature) []Signature {
	owners := make([]common.Address, 0, len(signatures))
	for owner := range signatures {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool {
		return bytes.Compare(owners[i].Bytes(), owners[j].Bytes()) < 0
	})
	sigs := make([]Signature, len(owners))
	for i, owner := range owners {
		sigs[i] = signatures[owner]
	}
	return sigs
}

func EncodeSignatures(signatures map[common.Address]Signature) []byte {
	var blob []byte
	for _, sig := range OrderSignatures(signatures) {
		blob = append(blob, sig.EncodeRSV()...)
	}
	return blob
}

func DecodeSignatures(blob []byte) ([]Signature, error) {
	if len(blob)%SignatureLength != 0 {
		return nil, &MalformedSignatureBlobError{Length: len(blob)}
	}
	sigs := make([]Signature, 0, len(blob)/SignatureLength)
	for i := 0; i < len(blob); i += SignatureLength {
		sig, err := SignatureFromBytes(blob[i : i+SignatureLength])
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, *sig)
	}
	return sigs, nil
}
