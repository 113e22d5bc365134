package safe

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is any party able to approve a Safe transaction by signing its
// hash. A signer may decline by returning (nil, nil), which is not an error.
type Signer interface {
	Address() common.Address
	SignTransaction(ctx context.Context, tx *Transaction) (*Signature, error)
}

// KeySigner signs transaction hashes with a plain ECDSA key, producing the
// EOA signature form the Safe contract verifies with ecrecover.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, err
	}
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTransaction(ctx context.Context, tx *Transaction) (*Signature, error) {
	return s.SignDigest(ctx, tx.Hash())
}

// SignDigest signs an arbitrary 32 byte digest, used for transaction hashes
// and for the delegate management challenges of the transaction service.
func (s *KeySigner) SignDigest(ctx context.Context, digest [32]byte) (*Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, err
	}
	sig, err := SignatureFromBytes(raw)
	if err != nil {
		return nil, err
	}
	// ecrecover form, recovery id moved to 27/28
	sig.V += 27
	return sig, nil
}
