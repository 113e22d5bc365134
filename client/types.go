package client

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quorumlabs/safekit/safe"
)

// Address tolerates the two shapes the transaction service uses for
// addresses: a plain hex string, or an envelope {"value": "0x..", ...}.
type Address common.Address

func (a Address) Common() common.Address {
	return common.Address(a)
}

func (a Address) Hex() string {
	return common.Address(a).Hex()
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(common.Address(a).Hex())
}

func (a *Address) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Address(common.HexToAddress(s))
		return nil
	}
	var envelope struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return fmt.Errorf("invalid address %s: %v", string(b), err)
	}
	*a = Address(common.HexToAddress(envelope.Value))
	return nil
}

// HexBytes marshals as a 0x prefixed hex string and accepts null.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("null"), nil
	}
	return json.Marshal("0x" + hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*h = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*h = nil
		return nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return err
	}
	*h = raw
	return nil
}

// BigInt accepts both the JSON number and decimal string encodings the
// service uses for wei amounts.
type BigInt big.Int

func (i *BigInt) Big() *big.Int {
	if i == nil {
		return new(big.Int)
	}
	return (*big.Int)(i)
}

func NewBigInt(v *big.Int) *BigInt {
	if v == nil {
		v = new(big.Int)
	}
	return (*BigInt)(new(big.Int).Set(v))
}

func (i *BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Big().String())
}

func (i *BigInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid integer %s", s)
	}
	*i = BigInt(*v)
	return nil
}

// SafeDetails is the wallet state the service reports for one Safe.
type SafeDetails struct {
	Address         Address   `json:"address"`
	Nonce           uint64    `json:"nonce"`
	Threshold       uint64    `json:"threshold"`
	Owners          []Address `json:"owners"`
	MasterCopy      Address   `json:"masterCopy"`
	Modules         []Address `json:"modules"`
	FallbackHandler Address   `json:"fallbackHandler"`
	Guard           Address   `json:"guard"`
	Version         string    `json:"version"`
}

func (d *SafeDetails) OwnerAddresses() []common.Address {
	owners := make([]common.Address, len(d.Owners))
	for i, o := range d.Owners {
		owners[i] = o.Common()
	}
	return owners
}

// Confirmation is one owner's approval of a proposal, either an ECDSA
// signature over the transaction hash or an on-chain approval event.
type Confirmation struct {
	Owner           Address            `json:"owner"`
	SubmissionDate  time.Time          `json:"submissionDate"`
	TransactionHash HexBytes           `json:"transactionHash,omitempty"`
	Signature       HexBytes           `json:"signature"`
	SignatureType   safe.SignatureType `json:"signatureType,omitempty"`
}

func (c *Confirmation) AsSignature() (*safe.Signature, error) {
	return safe.SignatureFromBytes(c.Signature)
}

// MultisigTransaction is one entry of the service ledger. Executed entries
// carry the additional execution fields and IsExecuted set.
type MultisigTransaction struct {
	Safe                  Address        `json:"safe"`
	To                    Address        `json:"to"`
	Value                 *BigInt        `json:"value"`
	Data                  HexBytes       `json:"data,omitempty"`
	Operation             safe.Operation `json:"operation"`
	GasToken              Address        `json:"gasToken"`
	SafeTxGas             *BigInt        `json:"safeTxGas"`
	BaseGas               *BigInt        `json:"baseGas"`
	GasPrice              *BigInt        `json:"gasPrice"`
	RefundReceiver        Address        `json:"refundReceiver"`
	Nonce                 uint64         `json:"nonce"`
	SubmissionDate        time.Time      `json:"submissionDate"`
	Modified              time.Time      `json:"modified,omitempty"`
	SafeTxHash            safe.TxID      `json:"safeTxHash"`
	ConfirmationsRequired uint64         `json:"confirmationsRequired"`
	Confirmations         []Confirmation `json:"confirmations"`
	Trusted               bool           `json:"trusted"`
	Signatures            HexBytes       `json:"signatures,omitempty"`

	IsExecuted      bool     `json:"isExecuted,omitempty"`
	ExecutionDate   string   `json:"executionDate,omitempty"`
	BlockNumber     uint64   `json:"blockNumber,omitempty"`
	TransactionHash HexBytes `json:"transactionHash,omitempty"`
	Executor        *Address `json:"executor,omitempty"`
	IsSuccessful    *bool    `json:"isSuccessful,omitempty"`
	GasUsed         uint64   `json:"gasUsed,omitempty"`
	Origin          string   `json:"origin,omitempty"`
}

func (t *MultisigTransaction) Executed() bool {
	return t.IsExecuted
}

func (t *MultisigTransaction) Confirmed() bool {
	return uint64(len(t.Confirmations)) >= t.ConfirmationsRequired
}

func (t *MultisigTransaction) ConfirmedOwners() map[common.Address]bool {
	owners := make(map[common.Address]bool, len(t.Confirmations))
	for _, c := range t.Confirmations {
		owners[c.Owner.Common()] = true
	}
	return owners
}

// AsTransaction reconstructs the canonical record from a ledger entry, with
// the version and chain id that were not part of the service payload.
func (t *MultisigTransaction) AsTransaction(version string, chainID int64) *safe.Transaction {
	return &safe.Transaction{
		SafeAddress:    t.Safe.Common(),
		ChainID:        chainID,
		Version:        version,
		To:             t.To.Common(),
		Value:          t.Value.Big(),
		Data:           t.Data,
		Operation:      t.Operation,
		SafeTxGas:      t.SafeTxGas.Big(),
		BaseGas:        t.BaseGas.Big(),
		GasPrice:       t.GasPrice.Big(),
		GasToken:       t.GasToken.Common(),
		RefundReceiver: t.RefundReceiver.Common(),
		Nonce:          t.Nonce,
	}
}

// NewMultisigTransaction builds an unexecuted ledger entry from a canonical
// record, the way a proposal is registered.
func NewMultisigTransaction(tx *safe.Transaction, confirmationsRequired uint64) *MultisigTransaction {
	now := time.Now().UTC()
	return &MultisigTransaction{
		Safe:                  Address(tx.SafeAddress),
		To:                    Address(tx.To),
		Value:                 NewBigInt(tx.Value),
		Data:                  HexBytes(tx.Data),
		Operation:             tx.Operation,
		GasToken:              Address(tx.GasToken),
		SafeTxGas:             NewBigInt(tx.SafeTxGas),
		BaseGas:               NewBigInt(tx.BaseGas),
		GasPrice:              NewBigInt(tx.GasPrice),
		RefundReceiver:        Address(tx.RefundReceiver),
		Nonce:                 tx.Nonce,
		SubmissionDate:        now,
		Modified:              now,
		SafeTxHash:            tx.ID(),
		ConfirmationsRequired: confirmationsRequired,
		Trusted:               true,
	}
}

// Delegate is an address allowed to propose on behalf of a Safe owner.
type Delegate struct {
	Safe      Address `json:"safe"`
	Delegate  Address `json:"delegate"`
	Delegator Address `json:"delegator"`
	Label     string  `json:"label"`
}
