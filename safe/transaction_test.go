package safe

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testTransaction(nonce uint64) *Transaction {
	return &Transaction{
		SafeAddress:    common.HexToAddress("0x5AFE3855358E112B5647B952709E6165e1c1eEEe"),
		ChainID:        1,
		Version:        "1.3.0",
		To:             common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"),
		Value:          big.NewInt(1000000000000000000),
		Data:           []byte{0xde, 0xad, 0xbe, 0xef},
		Operation:      OperationCall,
		SafeTxGas:      big.NewInt(0),
		BaseGas:        big.NewInt(0),
		GasPrice:       big.NewInt(0),
		GasToken:       common.HexToAddress(EmptyAddress),
		RefundReceiver: common.HexToAddress(EmptyAddress),
		Nonce:          nonce,
	}
}

func TestTransactionHash(t *testing.T) {
	require := require.New(t)

	tx := testTransaction(7)
	hash := tx.Hash()
	require.Equal(hash, tx.Hash())
	require.Equal(TxID("0x"+common.Bytes2Hex(hash[:])), tx.ID())

	// any nonce change produces a distinct transaction
	other := testTransaction(8)
	require.NotEqual(tx.Hash(), other.Hash())

	// chain id and wallet address participate in domain separation
	cross := testTransaction(7)
	cross.ChainID = 5
	require.NotEqual(tx.Hash(), cross.Hash())
	moved := testTransaction(7)
	moved.SafeAddress = common.HexToAddress("0x5AFE3855358E112B5647B952709E6165e1c1eEE1")
	require.NotEqual(tx.Hash(), moved.Hash())
}

func TestTransactionHashVersions(t *testing.T) {
	require := require.New(t)

	latest := testTransaction(0)
	legacy := testTransaction(0)
	legacy.Version = "1.1.1"
	require.NotEqual(latest.Hash(), legacy.Hash())

	// the L2 build suffix does not change the hashing scheme
	l2 := testTransaction(0)
	l2.Version = "1.3.0+L2"
	require.Equal(latest.Hash(), l2.Hash())

	// below 1.3.0 the baseGas field is absent from the struct hash entirely,
	// so two legacy records differing only in baseGas hash equal
	legacyBase := testTransaction(0)
	legacyBase.Version = "1.1.1"
	legacyBase.BaseGas = big.NewInt(21000)
	require.Equal(legacy.Hash(), legacyBase.Hash())

	latestBase := testTransaction(0)
	latestBase.BaseGas = big.NewInt(21000)
	require.NotEqual(latest.Hash(), latestBase.Hash())
}

func TestVersionBelow(t *testing.T) {
	require := require.New(t)

	require.True(versionBelow("1.1.1", 1, 3))
	require.True(versionBelow("1.2.0", 1, 3))
	require.False(versionBelow("1.3.0", 1, 3))
	require.False(versionBelow("1.3.0+L2", 1, 3))
	require.False(versionBelow("1.4.1", 1, 3))
	require.False(versionBelow("2.0.0", 1, 3))
	require.False(versionBelow("", 1, 3))
}

func TestERC20TransferData(t *testing.T) {
	require := require.New(t)

	receiver := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	data := ERC20TransferData(receiver, big.NewInt(1000000))
	require.Len(data, 4+32+32)
	require.Equal([]byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4])
	require.Equal(receiver.Bytes(), data[16:36])
	require.Equal(big.NewInt(1000000), new(big.Int).SetBytes(data[36:]))
}

func TestRejectionTransaction(t *testing.T) {
	require := require.New(t)

	addr := common.HexToAddress("0x5AFE3855358E112B5647B952709E6165e1c1eEEe")
	tx := RejectionTransaction(addr, 1, "1.3.0", 9)
	require.Equal(addr, tx.To)
	require.Equal(addr, tx.SafeAddress)
	require.Len(tx.Data, 0)
	require.Equal(uint64(9), tx.Nonce)
	require.Equal(int64(0), tx.Value.Int64())
	require.Equal(OperationCall, tx.Operation)
}
