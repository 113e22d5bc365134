package safe

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const safeABI = `[
{"type":"function","stateMutability":"view","name":"getThreshold","inputs":[],"outputs":[{"type":"uint256","name":""}]},
{"type":"function","stateMutability":"view","name":"getOwners","inputs":[],"outputs":[{"type":"address[]","name":""}]},
{"type":"function","stateMutability":"view","name":"nonce","inputs":[],"outputs":[{"type":"uint256","name":""}]},
{"type":"function","stateMutability":"view","name":"VERSION","inputs":[],"outputs":[{"type":"string","name":""}]},
{"type":"function","stateMutability":"view","name":"approvedHashes","inputs":[{"type":"address","name":""},{"type":"bytes32","name":""}],"outputs":[{"type":"uint256","name":""}]},
{"type":"function","stateMutability":"nonpayable","name":"approveHash","inputs":[{"type":"bytes32","name":"hashToApprove"}],"outputs":[]},
{"type":"function","stateMutability":"payable","name":"execTransaction","inputs":[{"type":"address","name":"to"},{"type":"uint256","name":"value"},{"type":"bytes","name":"data"},{"type":"uint8","name":"operation"},{"type":"uint256","name":"safeTxGas"},{"type":"uint256","name":"baseGas"},{"type":"uint256","name":"gasPrice"},{"type":"address","name":"gasToken"},{"type":"address","name":"refundReceiver"},{"type":"bytes","name":"signatures"}],"outputs":[{"type":"bool","name":"success"}]}
]`

// approvedHashes is the 9th declared slot of the Safe contract storage.
const approvedHashesSlot = 8

// ContractReader is the read side of the on-chain Safe collaborator.
type ContractReader interface {
	Nonce(ctx context.Context) (uint64, error)
	Threshold(ctx context.Context) (uint64, error)
	Owners(ctx context.Context) ([]common.Address, error)
	Version(ctx context.Context) (string, error)
	ApprovedHash(ctx context.Context, owner common.Address, hash [32]byte) (bool, error)
}

// Contract binds a deployed Safe over an RPC connection.
type Contract struct {
	address common.Address
	conn    *ethclient.Client
	abi     abi.ABI
	bound   *bind.BoundContract
}

func DialContract(rpc string, address common.Address) (*Contract, error) {
	conn, err := ethclient.Dial(rpc)
	if err != nil {
		return nil, err
	}
	return NewContract(conn, address)
}

func NewContract(conn *ethclient.Client, address common.Address) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(safeABI))
	if err != nil {
		return nil, err
	}
	return &Contract{
		address: address,
		conn:    conn,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, conn, conn, conn),
	}, nil
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) Close() {
	c.conn.Close()
}

func (c *Contract) Nonce(ctx context.Context) (uint64, error) {
	var out []any
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "nonce")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (c *Contract) Threshold(ctx context.Context) (uint64, error) {
	var out []any
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getThreshold")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (c *Contract) Owners(ctx context.Context) ([]common.Address, error) {
	var out []any
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getOwners")
	if err != nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

func (c *Contract) Version(ctx context.Context) (string, error) {
	var out []any
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "VERSION")
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

func (c *Contract) ApprovedHash(ctx context.Context, owner common.Address, hash [32]byte) (bool, error) {
	var out []any
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "approvedHashes", owner, hash)
	if err != nil {
		return false, err
	}
	return out[0].(*big.Int).Sign() > 0, nil
}

// ApprovedHashSlot computes the storage slot of approvedHashes[owner][hash]
// for callers that read approvals with eth_getStorageAt instead of a view
// call.
func ApprovedHashSlot(owner common.Address, hash [32]byte) common.Hash {
	outer := crypto.Keccak256(
		common.LeftPadBytes(owner.Bytes(), 32),
		common.LeftPadBytes(big.NewInt(approvedHashesSlot).Bytes(), 32),
	)
	inner := crypto.Keccak256(hash[:], outer)
	return common.BytesToHash(inner)
}

func (c *Contract) ApprovedHashAt(ctx context.Context, owner common.Address, hash [32]byte) (bool, error) {
	slot := ApprovedHashSlot(owner, hash)
	value, err := c.conn.StorageAt(ctx, c.address, slot, nil)
	if err != nil {
		return false, err
	}
	return new(big.Int).SetBytes(value).Sign() > 0, nil
}

// ExecTransactionData packs the execTransaction calldata: the transaction
// fields minus the nonce, followed by the packed signature blob.
func (c *Contract) ExecTransactionData(tx *Transaction, signatures []byte) ([]byte, error) {
	return c.abi.Pack(
		"execTransaction",
		tx.To,
		tx.gasOrZero(tx.Value),
		tx.Data,
		uint8(tx.Operation),
		tx.gasOrZero(tx.SafeTxGas),
		tx.gasOrZero(tx.BaseGas),
		tx.gasOrZero(tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		signatures,
	)
}

func (c *Contract) ExecTransaction(opts *bind.TransactOpts, tx *Transaction, signatures []byte) (*types.Transaction, error) {
	logger.Printf("contract.ExecTransaction(%s, %d, %x)", tx.SafeAddress, tx.Nonce, signatures)
	receipt, err := c.bound.Transact(opts, "execTransaction",
		tx.To,
		tx.gasOrZero(tx.Value),
		tx.Data,
		uint8(tx.Operation),
		tx.gasOrZero(tx.SafeTxGas),
		tx.gasOrZero(tx.BaseGas),
		tx.gasOrZero(tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		signatures,
	)
	if err != nil {
		return nil, MapSafeError(err)
	}
	return receipt, nil
}

func (c *Contract) ApproveHash(opts *bind.TransactOpts, hash [32]byte) (*types.Transaction, error) {
	receipt, err := c.bound.Transact(opts, "approveHash", hash)
	if err != nil {
		return nil, MapSafeError(err)
	}
	return receipt, nil
}

// SignerInit builds transact options for a hex encoded private key, the way
// submissions are authorized from the CLI.
func SignerInit(hexKey string, chainID int64) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid submitter key: %v", err)
	}
	return bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
}
