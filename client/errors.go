package client

import (
	"errors"
	"fmt"

	"github.com/quorumlabs/safekit/safe"
)

// ErrNotFound is returned when the index has no entry for a transaction id.
var ErrNotFound = errors.New("multisig transaction not found")

type UnsupportedChainError struct {
	ChainID int64
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("no known transaction service for chain %d", e.ChainID)
}

// ClientResponseError is any non 2xx response from the transaction service.
// The engine never retries these; idempotent GETs may be retried by callers.
type ClientResponseError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *ClientResponseError) Error() string {
	return fmt.Sprintf("transaction service %s => %d %s", e.URL, e.StatusCode, e.Body)
}

// MultisigTransactionNotFoundError is the specific 404 the service returns
// for a confirmations endpoint of an unknown transaction, distinguished from
// the generic ClientResponseError.
type MultisigTransactionNotFoundError struct {
	TxID safe.TxID
	URL  string
}

func (e *MultisigTransactionNotFoundError) Error() string {
	return fmt.Sprintf("multisig transaction %s not found", e.TxID)
}

func (e *MultisigTransactionNotFoundError) Unwrap() error {
	return ErrNotFound
}
