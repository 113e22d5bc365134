package safe

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// gnosis safe
// execTransaction(address to, uint256 value, bytes data, uint8 operation,
// uint256 safeTxGas, uint256 baseGas, uint256 gasPrice, address gasToken,
// address refundReceiver, bytes signatures)

const EmptyAddress = "0x0000000000000000000000000000000000000000"

// SentinelOwners is the head of the owner linked list in the Safe contract,
// the "previous owner" of the owner at index 0.
const SentinelOwners = "0x0000000000000000000000000000000000000001"

type Operation uint8

const (
	OperationCall         Operation = 0
	OperationDelegateCall Operation = 1
)

func (op Operation) String() string {
	switch op {
	case OperationCall:
		return "CALL"
	case OperationDelegateCall:
		return "DELEGATECALL"
	}
	return fmt.Sprintf("OPERATION#%d", uint8(op))
}

// TxID is the 0x prefixed hex form of the transaction hash, the key under
// which the transaction service indexes a proposal.
type TxID string

// Transaction is the immutable description of one proposed Safe action.
// SafeAddress, ChainID and Version take part only in hash domain separation.
// Any field change produces a logically distinct transaction with a distinct
// hash, so instances are never mutated after creation.
type Transaction struct {
	SafeAddress    common.Address
	ChainID        int64
	Version        string
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      Operation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          uint64
}

var (
	domainSeparatorTypeHashV1 = crypto.Keccak256([]byte("EIP712Domain(address verifyingContract)"))
	domainSeparatorTypeHash   = crypto.Keccak256([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))

	safeTxTypeHashV1 = crypto.Keccak256([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
	safeTxTypeHash   = crypto.Keccak256([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
)

func newType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	bytes32Ty = newType("bytes32")
	addressTy = newType("address")
	uint256Ty = newType("uint256")
	uint8Ty   = newType("uint8")
	bytesTy   = newType("bytes")
)

// Hash computes the canonical EIP-712 transaction hash. Safes below version
// 1.3.0 use the chainId-less domain and a SafeTx struct without the baseGas
// field, so the struct layout branches on the wallet version, not just the
// field defaults.
func (tx *Transaction) Hash() [32]byte {
	var structData, domainData []byte
	if versionBelow(tx.Version, 1, 3) {
		structData = packStructArguments(abi.Arguments{
			{Type: bytes32Ty}, {Type: addressTy}, {Type: uint256Ty}, {Type: bytes32Ty},
			{Type: uint8Ty}, {Type: uint256Ty}, {Type: uint256Ty},
			{Type: addressTy}, {Type: addressTy}, {Type: uint256Ty},
		},
			common.BytesToHash(safeTxTypeHashV1), tx.To, tx.gasOrZero(tx.Value),
			common.BytesToHash(crypto.Keccak256(tx.Data)), uint8(tx.Operation),
			tx.gasOrZero(tx.SafeTxGas), tx.gasOrZero(tx.GasPrice),
			tx.GasToken, tx.RefundReceiver, new(big.Int).SetUint64(tx.Nonce),
		)
		domainData = packStructArguments(abi.Arguments{
			{Type: bytes32Ty}, {Type: addressTy},
		}, common.BytesToHash(domainSeparatorTypeHashV1), tx.SafeAddress)
	} else {
		structData = packStructArguments(abi.Arguments{
			{Type: bytes32Ty}, {Type: addressTy}, {Type: uint256Ty}, {Type: bytes32Ty},
			{Type: uint8Ty}, {Type: uint256Ty}, {Type: uint256Ty}, {Type: uint256Ty},
			{Type: addressTy}, {Type: addressTy}, {Type: uint256Ty},
		},
			common.BytesToHash(safeTxTypeHash), tx.To, tx.gasOrZero(tx.Value),
			common.BytesToHash(crypto.Keccak256(tx.Data)), uint8(tx.Operation),
			tx.gasOrZero(tx.SafeTxGas), tx.gasOrZero(tx.BaseGas), tx.gasOrZero(tx.GasPrice),
			tx.GasToken, tx.RefundReceiver, new(big.Int).SetUint64(tx.Nonce),
		)
		domainData = packStructArguments(abi.Arguments{
			{Type: bytes32Ty}, {Type: uint256Ty}, {Type: addressTy},
		}, common.BytesToHash(domainSeparatorTypeHash), big.NewInt(tx.ChainID), tx.SafeAddress)
	}

	var txData []byte
	txData = append(txData, 0x19, 0x01)
	txData = append(txData, crypto.Keccak256(domainData)...)
	txData = append(txData, crypto.Keccak256(structData)...)

	var hash [32]byte
	copy(hash[:], crypto.Keccak256(txData))
	return hash
}

func (tx *Transaction) ID() TxID {
	hash := tx.Hash()
	return TxID("0x" + hex.EncodeToString(hash[:]))
}

func (tx *Transaction) gasOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func packStructArguments(args abi.Arguments, vals ...any) []byte {
	b, err := args.Pack(vals...)
	if err != nil {
		panic(err)
	}
	return b
}

func versionBelow(version string, major, minor int) bool {
	parts := strings.SplitN(strings.TrimSuffix(strings.TrimSpace(version), "+L2"), ".", 3)
	if len(parts) < 2 {
		return false
	}
	ma, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	mi, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return ma < major || (ma == major && mi < minor)
}

// ERC20TransferData builds transfer(address,uint256) calldata for token
// transfers proposed through a Safe.
func ERC20TransferData(receiver common.Address, amount *big.Int) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte("transfer(address,uint256)"))
	methodID := hash.Sum(nil)[:4]

	var data []byte
	data = append(data, methodID...)
	data = append(data, common.LeftPadBytes(receiver.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// RejectionTransaction builds the conventional empty self-call used to
// supersede a pending proposal at the same nonce.
func RejectionTransaction(safeAddress common.Address, chainID int64, version string, nonce uint64) *Transaction {
	return &Transaction{
		SafeAddress:    safeAddress,
		ChainID:        chainID,
		Version:        version,
		To:             safeAddress,
		Value:          big.NewInt(0),
		Operation:      OperationCall,
		SafeTxGas:      big.NewInt(0),
		BaseGas:        big.NewInt(0),
		GasPrice:       big.NewInt(0),
		GasToken:       common.HexToAddress(EmptyAddress),
		RefundReceiver: common.HexToAddress(EmptyAddress),
		Nonce:          nonce,
	}
}
