package safe

import (
	"bytes"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MultiSendCallOnly v1.3.0, multiSend(bytes) 0x8d80ff0a. The call only
// variant refuses delegatecall sub operations, so every packed record uses
// OperationCall.
var MultiSendCallOnlyAddresses = []string{
	"0x40A2aCCbd92BCA938b02010E17A5b8929b49130D",
	"0xA1dabEF33b3B82c7814B6D82A79e50F4AC44102B", // EIP-155 deployment
}

var multiSendMethodID = crypto.Keccak256([]byte("multiSend(bytes)"))[:4]

type MultiSendCall struct {
	Target   common.Address
	Value    *big.Int
	CallData []byte
}

// MultiSend accumulates an ordered sequence of sub calls and packs them into
// the payload of a single wrapped multiSend call. Sub calls execute in list
// order and the order survives an encode and decode round trip.
type MultiSend struct {
	Calls []MultiSendCall
}

func NewMultiSend() *MultiSend {
	return &MultiSend{}
}

func (ms *MultiSend) Add(target common.Address, value *big.Int, callData []byte) *MultiSend {
	if value == nil {
		value = big.NewInt(0)
	}
	if value.Sign() < 0 {
		panic(value.String())
	}
	ms.Calls = append(ms.Calls, MultiSendCall{
		Target:   target,
		Value:    value,
		CallData: callData,
	})
	return ms
}

// AddFromEffect appends a sub call captured from a trial execution. The
// semantics are identical to Add, the name only records provenance.
func (ms *MultiSend) AddFromEffect(target common.Address, value *big.Int, callData []byte) *MultiSend {
	return ms.Add(target, value, callData)
}

// RequiredValue is the sum of the sub call values, the minimum amount of
// native currency the wrapping call must forward.
func (ms *MultiSend) RequiredValue() *big.Int {
	sum := new(big.Int)
	for _, call := range ms.Calls {
		sum.Add(sum, call.Value)
	}
	return sum
}

// Encode packs every sub call as
// operation(1) || target(20) || value(32) || len(callData)(32) || callData
// concatenated without separators.
func (ms *MultiSend) Encode() []byte {
	var packed []byte
	for _, call := range ms.Calls {
		packed = append(packed, byte(OperationCall))
		packed = append(packed, call.Target.Bytes()...)
		packed = append(packed, common.LeftPadBytes(call.Value.Bytes(), 32)...)
		packed = append(packed, common.LeftPadBytes(new(big.Int).SetInt64(int64(len(call.CallData))).Bytes(), 32)...)
		packed = append(packed, call.CallData...)
	}
	return packed
}

// DecodeCalls reads packed sub call records until the buffer is exhausted,
// appending each to Calls in encountered order.
func (ms *MultiSend) DecodeCalls(packed []byte) error {
	buf := bytes.NewReader(packed)
	for buf.Len() > 0 {
		header := make([]byte, 1+20+32+32)
		if _, err := io.ReadFull(buf, header); err != nil {
			return fmt.Errorf("multisend record header: %v", err)
		}
		length := new(big.Int).SetBytes(header[53:85])
		if !length.IsUint64() || length.Uint64() > uint64(buf.Len()) {
			return fmt.Errorf("multisend record length %s exceeds remaining %d", length, buf.Len())
		}
		callData := make([]byte, length.Uint64())
		if _, err := io.ReadFull(buf, callData); err != nil {
			return fmt.Errorf("multisend record payload: %v", err)
		}
		ms.Calls = append(ms.Calls, MultiSendCall{
			Target:   common.BytesToAddress(header[1:21]),
			Value:    new(big.Int).SetBytes(header[21:53]),
			CallData: callData,
		})
	}
	return nil
}

// AddFromCalldata strips the multiSend(bytes) ABI envelope from a full
// calldata blob and decodes the packed records inside.
func (ms *MultiSend) AddFromCalldata(calldata []byte) error {
	if len(calldata) < 4 || !bytes.Equal(calldata[:4], multiSendMethodID) {
		return fmt.Errorf("calldata is not a multiSend invocation")
	}
	args := abi.Arguments{{Type: bytesTy}}
	vals, err := args.Unpack(calldata[4:])
	if err != nil {
		return err
	}
	packed, ok := vals[0].([]byte)
	if !ok {
		return fmt.Errorf("unexpected multiSend argument type %T", vals[0])
	}
	return ms.DecodeCalls(packed)
}

// TransactionData builds the multiSend(bytes) calldata for the batch.
func (ms *MultiSend) TransactionData() []byte {
	args := abi.Arguments{{Type: bytesTy}}
	packed, err := args.Pack(ms.Encode())
	if err != nil {
		panic(err)
	}
	var data []byte
	data = append(data, multiSendMethodID...)
	data = append(data, packed...)
	return data
}

// AsTransaction wraps the batch as a single delegatecall transaction
// targeting the MultiSendCallOnly contract. The declared value must cover
// the sum of the sub call values.
func (ms *MultiSend) AsTransaction(safeAddress common.Address, chainID int64, version string, value *big.Int, nonce uint64) (*Transaction, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	if required := ms.RequiredValue(); value.Cmp(required) < 0 {
		return nil, &ValueMismatchError{Required: required.String(), Declared: value.String()}
	}
	return &Transaction{
		SafeAddress:    safeAddress,
		ChainID:        chainID,
		Version:        version,
		To:             common.HexToAddress(MultiSendCallOnlyAddresses[0]),
		Value:          value,
		Data:           ms.TransactionData(),
		Operation:      OperationDelegateCall,
		SafeTxGas:      big.NewInt(0),
		BaseGas:        big.NewInt(0),
		GasPrice:       big.NewInt(0),
		GasToken:       common.HexToAddress(EmptyAddress),
		RefundReceiver: common.HexToAddress(EmptyAddress),
		Nonce:          nonce,
	}, nil
}
