package client

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quorumlabs/safekit/safe"
	"github.com/stretchr/testify/require"
)

type fakeContract struct {
	nonce     uint64
	threshold uint64
	owners    []common.Address
	version   string
	approved  map[common.Address]map[[32]byte]bool
}

func (c *fakeContract) Nonce(ctx context.Context) (uint64, error) {
	return c.nonce, nil
}

func (c *fakeContract) Threshold(ctx context.Context) (uint64, error) {
	return c.threshold, nil
}

func (c *fakeContract) Owners(ctx context.Context) ([]common.Address, error) {
	return c.owners, nil
}

func (c *fakeContract) Version(ctx context.Context) (string, error) {
	return c.version, nil
}

func (c *fakeContract) ApprovedHash(ctx context.Context, owner common.Address, hash [32]byte) (bool, error) {
	return c.approved[owner][hash], nil
}

var (
	testSafeAddress = common.HexToAddress("0x5AFE3855358E112B5647B952709E6165e1c1eEEe")
	testOwnerA      = common.HexToAddress("0x1100000000000000000000000000000000000001")
	testOwnerB      = common.HexToAddress("0x2200000000000000000000000000000000000002")
	testOwnerC      = common.HexToAddress("0x3300000000000000000000000000000000000003")
)

func newFakeContract(nonce uint64) *fakeContract {
	return &fakeContract{
		nonce:     nonce,
		threshold: 2,
		owners:    []common.Address{testOwnerA, testOwnerB, testOwnerC},
		version:   "1.3.0",
		approved:  make(map[common.Address]map[[32]byte]bool),
	}
}

func queueTransaction(nonce uint64) *safe.Transaction {
	return &safe.Transaction{
		SafeAddress:    testSafeAddress,
		ChainID:        1,
		Version:        "1.3.0",
		To:             common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"),
		Value:          big.NewInt(1),
		SafeTxGas:      big.NewInt(0),
		BaseGas:        big.NewInt(0),
		GasPrice:       big.NewInt(0),
		GasToken:       common.HexToAddress(safe.EmptyAddress),
		RefundReceiver: common.HexToAddress(safe.EmptyAddress),
		Nonce:          nonce,
	}
}

func TestMemoryClientProposeIdempotent(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	mc := NewMemoryClient(testSafeAddress, newFakeContract(0))
	tx := queueTransaction(0)
	sigA := safe.Signature{V: 27}
	sigA.R[0] = 0x0a

	err := mc.ProposeTransaction(ctx, tx, map[common.Address]safe.Signature{testOwnerA: sigA}, testOwnerA)
	require.Nil(err)
	entry, err := mc.Transaction(ctx, tx.ID())
	require.Nil(err)
	require.Len(entry.Confirmations, 1)
	require.Equal(uint64(2), entry.ConfirmationsRequired)

	// re-proposing the same record merges per owner, never duplicates
	sigA2 := safe.Signature{V: 28}
	sigB := safe.Signature{V: 27}
	err = mc.ProposeTransaction(ctx, tx, map[common.Address]safe.Signature{
		testOwnerA: sigA2,
		testOwnerB: sigB,
	}, testOwnerA)
	require.Nil(err)
	entry, err = mc.Transaction(ctx, tx.ID())
	require.Nil(err)
	require.Len(entry.Confirmations, 2)
	require.True(entry.Confirmed())

	all, err := mc.AllTransactions(ctx).Collect()
	require.Nil(err)
	require.Len(all, 1)
}

func TestMemoryClientPostSignatures(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	mc := NewMemoryClient(testSafeAddress, newFakeContract(0))
	tx := queueTransaction(0)

	err := mc.PostSignatures(ctx, tx.ID(), map[common.Address]safe.Signature{testOwnerA: {V: 27}})
	require.True(errors.Is(err, ErrNotFound))

	err = mc.ProposeTransaction(ctx, tx, nil, testOwnerA)
	require.Nil(err)
	err = mc.PostSignatures(ctx, tx.ID(), map[common.Address]safe.Signature{testOwnerA: {V: 27}})
	require.Nil(err)
	err = mc.PostSignatures(ctx, tx.ID(), map[common.Address]safe.Signature{
		testOwnerA: {V: 28},
		testOwnerB: {V: 27},
	})
	require.Nil(err)

	confs, err := mc.Confirmations(ctx, tx.ID()).Collect()
	require.Nil(err)
	require.Len(confs, 2)
}

func TestMemoryClientFilters(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	contract := newFakeContract(5)
	mc := NewMemoryClient(testSafeAddress, contract)

	// nonces 3 and 4 were queued before the chain advanced to nonce 5;
	// 4 executed, 3 is an orphan that can never execute
	tx3 := queueTransaction(3)
	tx4 := queueTransaction(4)
	tx5 := queueTransaction(5)
	tx6 := queueTransaction(6)
	for _, tx := range []*safe.Transaction{tx3, tx4, tx5, tx6} {
		require.Nil(mc.ProposeTransaction(ctx, tx, nil, testOwnerA))
	}
	require.Nil(mc.PostSignatures(ctx, tx5.ID(), map[common.Address]safe.Signature{
		testOwnerA: {V: 27},
		testOwnerB: {V: 27},
	}))
	require.Nil(mc.MarkExecuted(tx4.ID(), common.HexToHash("0x01")))

	all, err := mc.AllTransactions(ctx).Collect()
	require.Nil(err)
	require.Len(all, 4)
	require.Equal(uint64(6), all[0].Nonce)
	require.Equal(uint64(3), all[3].Nonce)

	// unfiltered: the orphan at nonce 3 disappears, the executed entry stays
	it, err := mc.Transactions(ctx, nil)
	require.Nil(err)
	txs, err := it.Collect()
	require.Nil(err)
	require.Len(txs, 3)
	require.Equal(uint64(6), txs[0].Nonce)
	require.Equal(uint64(5), txs[1].Nonce)
	require.Equal(uint64(4), txs[2].Nonce)

	// pending only: stop at the first executed entry
	it, err = mc.Transactions(ctx, &TxQuery{Confirmed: Confirmed(false)})
	require.Nil(err)
	txs, err = it.Collect()
	require.Nil(err)
	require.Len(txs, 2)
	require.Equal(uint64(6), txs[0].Nonce)
	require.Equal(uint64(5), txs[1].Nonce)

	// confirmed only: entries below threshold are skipped
	it, err = mc.Transactions(ctx, &TxQuery{Confirmed: Confirmed(true)})
	require.Nil(err)
	txs, err = it.Collect()
	require.Nil(err)
	require.Len(txs, 2)
	require.Equal(uint64(5), txs[0].Nonce)
	require.Equal(uint64(4), txs[1].Nonce)

	// nonce window
	five := uint64(5)
	it, err = mc.Transactions(ctx, &TxQuery{StartingNonce: 5, EndingNonce: &five})
	require.Nil(err)
	txs, err = it.Collect()
	require.Nil(err)
	require.Len(txs, 1)
	require.Equal(uint64(5), txs[0].Nonce)

	// id filter
	it, err = mc.Transactions(ctx, &TxQuery{FilterByIDs: map[safe.TxID]bool{tx6.ID(): true}})
	require.Nil(err)
	txs, err = it.Collect()
	require.Nil(err)
	require.Len(txs, 1)
	require.Equal(tx6.ID(), txs[0].SafeTxHash)

	// missing signers: nonce 5 already has both, nonce 6 has neither
	it, err = mc.Transactions(ctx, &TxQuery{
		Confirmed:      Confirmed(false),
		MissingSigners: []common.Address{testOwnerA, testOwnerB},
	})
	require.Nil(err)
	txs, err = it.Collect()
	require.Nil(err)
	require.Len(txs, 1)
	require.Equal(uint64(6), txs[0].Nonce)
}

func TestMemoryClientDetails(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	mc := NewMemoryClient(testSafeAddress, newFakeContract(7))
	details, err := mc.SafeDetails(ctx)
	require.Nil(err)
	require.Equal(uint64(7), details.Nonce)
	require.Equal(uint64(2), details.Threshold)
	require.Equal("1.3.0", details.Version)
	require.Equal([]common.Address{testOwnerA, testOwnerB, testOwnerC}, details.OwnerAddresses())

	next, err := mc.NextNonce(ctx)
	require.Nil(err)
	require.Equal(uint64(7), next)

	_, ok, err := mc.EstimateGas(ctx, testOwnerA, big.NewInt(0), nil, safe.OperationCall)
	require.Nil(err)
	require.False(ok)
}
