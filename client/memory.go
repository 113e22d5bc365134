package client

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quorumlabs/safekit/safe"
)

// MemoryClient is an in-process transaction index backed by a map, for tests
// and for dry runs against development chains without a transaction service.
// Wallet state is read live from the contract so the index never drifts from
// the chain. Reads may interleave freely, concurrent writers are not
// supported.
type MemoryClient struct {
	address      common.Address
	contract     safe.ContractReader
	transactions map[safe.TxID]*MultisigTransaction
}

func NewMemoryClient(address common.Address, contract safe.ContractReader) *MemoryClient {
	return &MemoryClient{
		address:      address,
		contract:     contract,
		transactions: make(map[safe.TxID]*MultisigTransaction),
	}
}

func (c *MemoryClient) SafeDetails(ctx context.Context) (*SafeDetails, error) {
	nonce, err := c.contract.Nonce(ctx)
	if err != nil {
		return nil, err
	}
	threshold, err := c.contract.Threshold(ctx)
	if err != nil {
		return nil, err
	}
	owners, err := c.contract.Owners(ctx)
	if err != nil {
		return nil, err
	}
	version, err := c.contract.Version(ctx)
	if err != nil {
		return nil, err
	}
	details := &SafeDetails{
		Address:   Address(c.address),
		Nonce:     nonce,
		Threshold: threshold,
		Version:   version,
	}
	for _, o := range owners {
		details.Owners = append(details.Owners, Address(o))
	}
	return details, nil
}

func (c *MemoryClient) NextNonce(ctx context.Context) (uint64, error) {
	return c.contract.Nonce(ctx)
}

func (c *MemoryClient) AllTransactions(ctx context.Context) *TxIterator {
	ordered := make([]*MultisigTransaction, 0, len(c.transactions))
	for _, txn := range c.transactions {
		ordered = append(ordered, txn)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Nonce != ordered[j].Nonce {
			return ordered[i].Nonce > ordered[j].Nonce
		}
		return ordered[i].SubmissionDate.After(ordered[j].SubmissionDate)
	})
	i := 0
	return NewTxIterator(func() (*MultisigTransaction, error) {
		if i >= len(ordered) {
			return nil, nil
		}
		txn := ordered[i]
		i++
		return txn, nil
	})
}

func (c *MemoryClient) Transactions(ctx context.Context, query *TxQuery) (*TxIterator, error) {
	nextNonce, err := c.NextNonce(ctx)
	if err != nil {
		return nil, err
	}
	return FilterTransactions(c.AllTransactions(ctx), nextNonce, query), nil
}

func (c *MemoryClient) Confirmations(ctx context.Context, id safe.TxID) *ConfirmationIterator {
	txn := c.transactions[id]
	i := 0
	return NewConfirmationIterator(func() (*Confirmation, error) {
		if txn == nil || i >= len(txn.Confirmations) {
			return nil, nil
		}
		conf := txn.Confirmations[i]
		i++
		return &conf, nil
	})
}

func (c *MemoryClient) Transaction(ctx context.Context, id safe.TxID) (*MultisigTransaction, error) {
	txn, found := c.transactions[id]
	if !found {
		return nil, &MultisigTransactionNotFoundError{TxID: id}
	}
	return txn, nil
}

func (c *MemoryClient) ProposeTransaction(ctx context.Context, tx *safe.Transaction, signatures map[common.Address]safe.Signature, sender common.Address) error {
	id := tx.ID()
	entry, found := c.transactions[id]
	if !found {
		threshold, err := c.contract.Threshold(ctx)
		if err != nil {
			return err
		}
		entry = NewMultisigTransaction(tx, threshold)
		entry.Origin = proposalOrigin
		c.transactions[id] = entry
	}
	// re-proposing merges confirmations per owner, it never duplicates them
	for owner, sig := range signatures {
		c.confirm(entry, owner, sig)
	}
	return nil
}

func (c *MemoryClient) PostSignatures(ctx context.Context, id safe.TxID, signatures map[common.Address]safe.Signature) error {
	entry, found := c.transactions[id]
	if !found {
		return &MultisigTransactionNotFoundError{TxID: id}
	}
	for owner, sig := range signatures {
		c.confirm(entry, owner, sig)
	}
	return nil
}

func (c *MemoryClient) confirm(entry *MultisigTransaction, owner common.Address, sig safe.Signature) {
	for i, existing := range entry.Confirmations {
		if existing.Owner.Common() == owner {
			entry.Confirmations[i].Signature = sig.EncodeRSV()
			return
		}
	}
	sigType := safe.SignatureTypeEOA
	if sig.PreApproved() {
		sigType = safe.SignatureTypeApprovedHash
	}
	entry.Confirmations = append(entry.Confirmations, Confirmation{
		Owner:          Address(owner),
		SubmissionDate: time.Now().UTC(),
		Signature:      sig.EncodeRSV(),
		SignatureType:  sigType,
	})
	entry.Modified = time.Now().UTC()
}

func (c *MemoryClient) EstimateGas(ctx context.Context, to common.Address, value *big.Int, data []byte, operation safe.Operation) (uint64, bool, error) {
	return 0, false, nil
}

// MarkExecuted records the execution of a queued entry, the way the service
// indexer does after seeing the transaction on chain.
func (c *MemoryClient) MarkExecuted(id safe.TxID, txHash common.Hash) error {
	entry, found := c.transactions[id]
	if !found {
		return &MultisigTransactionNotFoundError{TxID: id}
	}
	entry.IsExecuted = true
	entry.TransactionHash = txHash.Bytes()
	entry.ExecutionDate = time.Now().UTC().Format(time.RFC3339)
	entry.Modified = time.Now().UTC()
	return nil
}
