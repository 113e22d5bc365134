package client

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quorumlabs/safekit/safe"
)

// Client is the transaction index for one Safe: a remote, paginated, append
// style ledger of proposed and executed transactions. The networked client
// and the in-memory test double satisfy it with identical filtering
// semantics.
type Client interface {
	SafeDetails(ctx context.Context) (*SafeDetails, error)

	// NextNonce is the lowest on-chain-unconsumed nonce of the Safe.
	NextNonce(ctx context.Context) (uint64, error)

	// AllTransactions iterates the whole ledger ordered by strictly
	// descending nonce, newest queued first. The sequence is lazy and
	// restartable; consumers may stop pulling at any point.
	AllTransactions(ctx context.Context) *TxIterator

	// Transactions applies the standard filter rules over AllTransactions.
	Transactions(ctx context.Context, query *TxQuery) (*TxIterator, error)

	Confirmations(ctx context.Context, id safe.TxID) *ConfirmationIterator

	// Transaction returns the single ledger entry for id, or ErrNotFound.
	Transaction(ctx context.Context, id safe.TxID) (*MultisigTransaction, error)

	// ProposeTransaction registers a new proposal with whatever signatures
	// are already available. Idempotent on the transaction id: re-posting
	// merges confirmations, it never duplicates the entry.
	ProposeTransaction(ctx context.Context, tx *safe.Transaction, signatures map[common.Address]safe.Signature, sender common.Address) error

	// PostSignatures appends confirmations for owners not yet confirmed for
	// id. Fails with ErrNotFound when id is unknown to the index.
	PostSignatures(ctx context.Context, id safe.TxID, signatures map[common.Address]safe.Signature) error

	// EstimateGas is best effort; ok reports whether the index produced an
	// estimate at all.
	EstimateGas(ctx context.Context, to common.Address, value *big.Int, data []byte, operation safe.Operation) (estimate uint64, ok bool, err error)
}

// TxIterator is a pull based lazy sequence of ledger entries. Next returns
// (nil, nil) once the sequence is exhausted.
type TxIterator struct {
	next func() (*MultisigTransaction, error)
}

func NewTxIterator(next func() (*MultisigTransaction, error)) *TxIterator {
	return &TxIterator{next: next}
}

func (it *TxIterator) Next() (*MultisigTransaction, error) {
	return it.next()
}

// Collect drains the iterator, mainly for tests and the CLI.
func (it *TxIterator) Collect() ([]*MultisigTransaction, error) {
	var txs []*MultisigTransaction
	for {
		tx, err := it.Next()
		if err != nil {
			return txs, err
		}
		if tx == nil {
			return txs, nil
		}
		txs = append(txs, tx)
	}
}

type ConfirmationIterator struct {
	next func() (*Confirmation, error)
}

func NewConfirmationIterator(next func() (*Confirmation, error)) *ConfirmationIterator {
	return &ConfirmationIterator{next: next}
}

func (it *ConfirmationIterator) Next() (*Confirmation, error) {
	return it.next()
}

func (it *ConfirmationIterator) Collect() ([]*Confirmation, error) {
	var confs []*Confirmation
	for {
		c, err := it.Next()
		if err != nil {
			return confs, err
		}
		if c == nil {
			return confs, nil
		}
		confs = append(confs, c)
	}
}

// TxQuery selects ledger entries. Confirmed nil means both pending and
// executed entries.
type TxQuery struct {
	Confirmed      *bool
	StartingNonce  uint64
	EndingNonce    *uint64
	FilterByIDs    map[safe.TxID]bool
	MissingSigners []common.Address
}

func Confirmed(v bool) *bool {
	return &v
}

// FilterTransactions applies the filter rules, in order, over a descending
// nonce sequence. The early stops at StartingNonce and at the first executed
// entry are only safe because the underlying order is strictly descending by
// nonce, which is a hard requirement on AllTransactions implementations.
func FilterTransactions(raw *TxIterator, nextNonce uint64, query *TxQuery) *TxIterator {
	if query == nil {
		query = &TxQuery{}
	}
	done := false
	return NewTxIterator(func() (*MultisigTransaction, error) {
		for !done {
			txn, err := raw.Next()
			if err != nil {
				return nil, err
			}
			if txn == nil {
				break
			}

			if query.EndingNonce != nil && txn.Nonce > *query.EndingNonce {
				// skip all larger nonces first
				continue
			}
			if txn.Nonce < query.StartingNonce {
				break
			}

			if query.Confirmed != nil {
				if !*query.Confirmed && txn.Executed() {
					// executed entries only appear below all pending ones
					break
				}
				if *query.Confirmed && !txn.Confirmed() {
					continue
				}
			}

			// orphaned: a pending entry below the on-chain next nonce was
			// superseded by an executed transaction at that nonce and can
			// never execute
			if txn.Nonce < nextNonce && !txn.Executed() {
				continue
			}

			if len(query.FilterByIDs) > 0 && !query.FilterByIDs[txn.SafeTxHash] {
				continue
			}

			if len(query.MissingSigners) > 0 {
				confirmed := txn.ConfirmedOwners()
				missing := false
				for _, signer := range query.MissingSigners {
					if !confirmed[signer] {
						missing = true
						break
					}
				}
				if !missing {
					// every named signer already confirmed
					continue
				}
			}

			return txn, nil
		}
		done = true
		return nil, nil
	})
}
