package safe

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestMultiSendRoundTrip(t *testing.T) {
	require := require.New(t)

	ms := NewMultiSend()
	ms.Add(common.HexToAddress("0x1100000000000000000000000000000000000001"), big.NewInt(2), []byte{0xca, 0xfe})
	ms.Add(common.HexToAddress("0x2200000000000000000000000000000000000002"), big.NewInt(3), nil)
	ms.Add(common.HexToAddress("0x3300000000000000000000000000000000000003"), nil, make([]byte, 100))

	packed := ms.Encode()
	decoded := NewMultiSend()
	require.Nil(decoded.DecodeCalls(packed))
	require.Len(decoded.Calls, 3)
	for i, call := range decoded.Calls {
		require.Equal(ms.Calls[i].Target, call.Target)
		require.Equal(ms.Calls[i].Value.String(), call.Value.String())
		require.Equal(len(ms.Calls[i].CallData), len(call.CallData))
	}

	require.Equal("5", ms.RequiredValue().String())
}

func TestMultiSendCalldataRoundTrip(t *testing.T) {
	require := require.New(t)

	ms := NewMultiSend()
	ms.Add(common.HexToAddress("0x1100000000000000000000000000000000000001"), big.NewInt(1), []byte{0x01, 0x02, 0x03})
	data := ms.TransactionData()
	require.Equal(multiSendMethodID, data[:4])

	decoded := NewMultiSend()
	require.Nil(decoded.AddFromCalldata(data))
	require.Len(decoded.Calls, 1)
	require.Equal(ms.Calls[0].Target, decoded.Calls[0].Target)
	require.Equal([]byte{0x01, 0x02, 0x03}, decoded.Calls[0].CallData)

	require.NotNil(decoded.AddFromCalldata([]byte{0x01, 0x02, 0x03, 0x04, 0x05}))
}

func TestMultiSendDecodeTruncated(t *testing.T) {
	require := require.New(t)

	ms := NewMultiSend()
	ms.Add(common.HexToAddress("0x1100000000000000000000000000000000000001"), big.NewInt(0), []byte{0xca, 0xfe})
	packed := ms.Encode()

	require.NotNil(NewMultiSend().DecodeCalls(packed[:30]))
	require.NotNil(NewMultiSend().DecodeCalls(packed[:len(packed)-1]))
}

func TestMultiSendAsTransaction(t *testing.T) {
	require := require.New(t)

	addr := common.HexToAddress("0x5AFE3855358E112B5647B952709E6165e1c1eEEe")
	ms := NewMultiSend()
	ms.Add(common.HexToAddress("0x1100000000000000000000000000000000000001"), big.NewInt(2), nil)
	ms.Add(common.HexToAddress("0x2200000000000000000000000000000000000002"), big.NewInt(3), nil)

	// declared value below the sub call sum must be rejected
	_, err := ms.AsTransaction(addr, 1, "1.3.0", big.NewInt(3), 0)
	var mismatch *ValueMismatchError
	require.ErrorAs(err, &mismatch)
	require.Equal("5", mismatch.Required)
	require.Equal("3", mismatch.Declared)

	tx, err := ms.AsTransaction(addr, 1, "1.3.0", big.NewInt(5), 0)
	require.Nil(err)
	require.Equal(common.HexToAddress(MultiSendCallOnlyAddresses[0]), tx.To)
	require.Equal(OperationDelegateCall, tx.Operation)
	require.Equal("5", tx.Value.String())

	back := NewMultiSend()
	require.Nil(back.AddFromCalldata(tx.Data))
	require.Len(back.Calls, 2)
}
