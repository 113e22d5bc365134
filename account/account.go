package account

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/quorumlabs/safekit/client"
	safecommon "github.com/quorumlabs/safekit/common"
	"github.com/quorumlabs/safekit/safe"
)

// Executor submits assembled calls to the Safe contract. *safe.Contract is
// the production implementation.
type Executor interface {
	ExecTransaction(opts *bind.TransactOpts, tx *safe.Transaction, signatures []byte) (*ethtypes.Transaction, error)
}

// Account drives the signing lifecycle of one Safe: it builds transaction
// records, collects confirmations from the index, the chain and local
// signers, and either assembles an executable call or leaves a partially
// signed proposal with the index.
type Account struct {
	address common.Address
	chainID int64
	version string

	client   client.Client
	contract safe.ContractReader
	signers  []safe.Signer
}

func New(ctx context.Context, address common.Address, chainID int64, c client.Client, contract safe.ContractReader, signers []safe.Signer) (*Account, error) {
	addresses := make([]any, len(signers))
	for i, s := range signers {
		addresses[i] = s.Address()
	}
	if !safecommon.CheckUnique(addresses...) {
		return nil, fmt.Errorf("duplicate signer addresses configured")
	}
	version, err := contract.Version(ctx)
	if err != nil {
		return nil, err
	}
	return &Account{
		address:  address,
		chainID:  chainID,
		version:  version,
		client:   c,
		contract: contract,
		signers:  signers,
	}, nil
}

func (a *Account) Address() common.Address {
	return a.address
}

func (a *Account) Version() string {
	return a.version
}

// LocalSigners lists the configured signers that are currently owners,
// preserving configuration order. The order is what makes signer
// consultation stable across calls.
func (a *Account) LocalSigners(ctx context.Context) ([]safe.Signer, error) {
	owners, err := a.contract.Owners(ctx)
	if err != nil {
		return nil, err
	}
	isOwner := make(map[common.Address]bool, len(owners))
	for _, o := range owners {
		isOwner[o] = true
	}
	var locals []safe.Signer
	for _, s := range a.signers {
		if isOwner[s.Address()] {
			locals = append(locals, s)
		}
	}
	return locals, nil
}

// NewNonce picks the nonce for a fresh proposal: one past the highest nonce
// already queued with the index, or the on-chain next nonce when the queue
// is empty.
func (a *Account) NewNonce(ctx context.Context) (uint64, error) {
	next, err := a.client.NextNonce(ctx)
	if err != nil {
		return 0, err
	}
	pending, err := a.client.Transactions(ctx, &client.TxQuery{Confirmed: client.Confirmed(false)})
	if err != nil {
		return 0, err
	}
	// descending order, the first pending entry carries the highest nonce
	txn, err := pending.Next()
	if err != nil {
		return 0, err
	}
	if txn != nil && txn.Nonce+1 > next {
		return txn.Nonce + 1, nil
	}
	return next, nil
}

// CreateTransaction builds a canonical record with the conventional zero gas
// refund fields and a fresh nonce.
func (a *Account) CreateTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte, operation safe.Operation) (*safe.Transaction, error) {
	nonce, err := a.NewNonce(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = big.NewInt(0)
	}
	return &safe.Transaction{
		SafeAddress:    a.address,
		ChainID:        a.chainID,
		Version:        a.version,
		To:             to,
		Value:          value,
		Data:           data,
		Operation:      operation,
		SafeTxGas:      big.NewInt(0),
		BaseGas:        big.NewInt(0),
		GasPrice:       big.NewInt(0),
		GasToken:       common.HexToAddress(safe.EmptyAddress),
		RefundReceiver: common.HexToAddress(safe.EmptyAddress),
		Nonce:          nonce,
	}, nil
}

// CreateRejection builds the empty self-call that supersedes the pending
// proposal at nonce.
func (a *Account) CreateRejection(nonce uint64) *safe.Transaction {
	return safe.RejectionTransaction(a.address, a.chainID, a.version, nonce)
}

// SignOptions controls one pass of the signing state machine.
type SignOptions struct {
	// Submit demands an executable call this round. Falling back to a
	// partial proposal then becomes a NotEnoughSignaturesError.
	Submit bool

	// Submitter is the address that will send the execution transaction.
	// When it is itself an owner, its call counts as one approval and the
	// required signature count drops by one.
	Submitter common.Address

	// Skip lists local signers to leave out this round.
	Skip []common.Address

	// SignaturesRequired overrides the threshold arithmetic when non nil.
	SignaturesRequired *uint64
}

// SignResult is the outcome of one SignTransaction pass: either Ready with
// an encodable quorum, or Proposed with the partial set left at the index.
type SignResult struct {
	Transaction *safe.Transaction
	Signatures  map[common.Address]safe.Signature
	Required    int
	Ready       bool
	Proposed    bool
}

// EncodedSignatures packs the collected confirmations in canonical order for
// the execTransaction signatures argument.
func (r *SignResult) EncodedSignatures() []byte {
	return safe.EncodeSignatures(r.Signatures)
}

// SignTransaction runs the signing state machine for one record. The
// required count is fixed up front: the threshold, minus one when the
// submitter is itself an owner. Known confirmations from the index and from
// on-chain hash approvals are merged first, then local signers are consulted
// in configuration order, each free to decline, and never beyond the
// required count. A signer-submitter is never counted against that reduced
// requirement; its pre-approved sentinel is appended only once quorum is
// reached, so a Ready blob always carries the full threshold of entries and
// a Proposed set never includes a fabricated confirmation.
func (a *Account) SignTransaction(ctx context.Context, tx *safe.Transaction, opts *SignOptions) (*SignResult, error) {
	if opts == nil {
		opts = &SignOptions{}
	}
	id := tx.ID()
	hash := tx.Hash()
	logger.Printf("account.SignTransaction(%s, %d, %s)", a.address, tx.Nonce, id)

	owners, err := a.contract.Owners(ctx)
	if err != nil {
		return nil, err
	}
	threshold, err := a.contract.Threshold(ctx)
	if err != nil {
		return nil, err
	}
	isOwner := make(map[common.Address]bool, len(owners))
	for _, o := range owners {
		isOwner[o] = true
	}

	submitterIsSigner := opts.Submitter != (common.Address{}) && isOwner[opts.Submitter]
	required := int(threshold)
	if submitterIsSigner {
		required = required - 1
	}
	if opts.SignaturesRequired != nil {
		required = int(*opts.SignaturesRequired)
	}

	signatures, err := a.knownConfirmations(ctx, id, hash, owners)
	if err != nil {
		return nil, err
	}
	if submitterIsSigner {
		// the act of submitting is the submitter's approval, it is already
		// excluded from the required count and its sentinel signature joins
		// the set only once quorum is reached
		delete(signatures, opts.Submitter)
	}

	locals, err := a.LocalSigners(ctx)
	if err != nil {
		return nil, err
	}
	skip := make(map[common.Address]bool, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[s] = true
	}
	if len(locals) == 0 && !submitterIsSigner {
		return nil, safe.ErrNoLocalSigners
	}

	for _, signer := range locals {
		if len(signatures) >= required {
			break
		}
		addr := signer.Address()
		if skip[addr] || addr == opts.Submitter {
			continue
		}
		if _, counted := signatures[addr]; counted {
			continue
		}
		sig, err := signer.SignTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		if sig == nil {
			// declining is not an error
			continue
		}
		signatures[addr] = *sig
	}

	result := &SignResult{
		Transaction: tx,
		Signatures:  signatures,
		Required:    required,
	}
	if len(signatures) >= required {
		if submitterIsSigner {
			signatures[opts.Submitter] = safe.PreApprovedSignature(opts.Submitter)
		}
		result.Ready = true
		return result, nil
	}
	if opts.Submit {
		// report the full count the contract will verify, the submitter's
		// implicit approval included
		demanded, actual := required, len(signatures)
		if submitterIsSigner {
			demanded, actual = demanded+1, actual+1
		}
		return nil, &safe.NotEnoughSignaturesError{Required: demanded, Actual: actual}
	}

	sender := opts.Submitter
	if sender == (common.Address{}) && len(locals) > 0 {
		sender = locals[0].Address()
	}
	err = a.client.ProposeTransaction(ctx, tx, signatures, sender)
	if err != nil {
		return nil, err
	}
	result.Proposed = true
	return result, nil
}

// AddSignatures tops up an existing proposal with local signatures it does
// not have yet, posting only the new ones.
func (a *Account) AddSignatures(ctx context.Context, tx *safe.Transaction) (map[common.Address]safe.Signature, error) {
	id := tx.ID()
	threshold, err := a.contract.Threshold(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := a.client.Transaction(ctx, id)
	if err != nil {
		return nil, err
	}
	needed := int(threshold) - len(entry.Confirmations)
	if needed <= 0 {
		return nil, safe.ErrNothingToDo
	}

	confirmed := entry.ConfirmedOwners()
	locals, err := a.LocalSigners(ctx)
	if err != nil {
		return nil, err
	}
	fresh := make(map[common.Address]safe.Signature)
	for _, signer := range locals {
		if len(fresh) >= needed {
			break
		}
		addr := signer.Address()
		if confirmed[addr] {
			continue
		}
		sig, err := signer.SignTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		if sig == nil {
			continue
		}
		fresh[addr] = *sig
	}
	if len(fresh) == 0 {
		return nil, safe.ErrNoLocalSigners
	}
	err = a.client.PostSignatures(ctx, id, fresh)
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// SubmitTransaction assembles every confirmation known for the record and
// hands the call to the executor. It does not re-check quorum locally, the
// contract verifies atomically at execution time. On-chain pre-approvals win
// over index confirmations for the same owner.
func (a *Account) SubmitTransaction(ctx context.Context, tx *safe.Transaction, executor Executor, opts *bind.TransactOpts) (*ethtypes.Transaction, error) {
	id := tx.ID()
	hash := tx.Hash()
	logger.Printf("account.SubmitTransaction(%s, %d, %s)", a.address, tx.Nonce, id)

	owners, err := a.contract.Owners(ctx)
	if err != nil {
		return nil, err
	}
	signatures, err := a.knownConfirmations(ctx, id, hash, owners)
	if err != nil {
		return nil, err
	}
	submitter := opts.From
	for _, o := range owners {
		if o == submitter {
			signatures[submitter] = safe.PreApprovedSignature(submitter)
			break
		}
	}
	return executor.ExecTransaction(opts, tx, safe.EncodeSignatures(signatures))
}

// knownConfirmations merges the index confirmations for id with on-chain
// hash approvals, approvals taking precedence for the same owner.
func (a *Account) knownConfirmations(ctx context.Context, id safe.TxID, hash [32]byte, owners []common.Address) (map[common.Address]safe.Signature, error) {
	signatures := make(map[common.Address]safe.Signature)
	confs, err := a.client.Confirmations(ctx, id).Collect()
	if err != nil {
		var notFound *client.MultisigTransactionNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		confs = nil
	}
	for _, conf := range confs {
		sig, err := conf.AsSignature()
		if err != nil {
			return nil, err
		}
		signatures[conf.Owner.Common()] = *sig
	}
	for _, owner := range owners {
		approved, err := a.contract.ApprovedHash(ctx, owner, hash)
		if err != nil {
			return nil, err
		}
		if approved {
			signatures[owner] = safe.PreApprovedSignature(owner)
		}
	}
	return signatures, nil
}

// PrevSigner walks the owner linked list of the Safe contract to the entry
// pointing at owner, needed for the removeOwner and swapOwner calls.
func (a *Account) PrevSigner(ctx context.Context, owner common.Address) (common.Address, error) {
	owners, err := a.contract.Owners(ctx)
	if err != nil {
		return common.Address{}, err
	}
	for i, o := range owners {
		if o != owner {
			continue
		}
		if i == 0 {
			return common.HexToAddress(safe.SentinelOwners), nil
		}
		return owners[i-1], nil
	}
	return common.Address{}, &safe.NotASignerError{Signer: owner}
}
