package safe

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSignatureOrdering(t *testing.T) {
	require := require.New(t)

	high := common.HexToAddress("0xAAf55C34BDb5cE434BcE1F145F971a5b1d2A4119")
	low := common.HexToAddress("0x1100000000000000000000000000000000000001")
	sigHigh := Signature{V: 27}
	sigHigh.R[0] = 0xaa
	sigLow := Signature{V: 28}
	sigLow.R[0] = 0x11

	ordered := OrderSignatures(map[common.Address]Signature{
		high: sigHigh,
		low:  sigLow,
	})
	require.Len(ordered, 2)
	require.Equal(byte(0x11), ordered[0].R[0])
	require.Equal(byte(0xaa), ordered[1].R[0])

	// same result regardless of insertion order
	again := OrderSignatures(map[common.Address]Signature{
		low:  sigLow,
		high: sigHigh,
	})
	require.Equal(ordered, again)
}

func TestSignatureEncodeDecode(t *testing.T) {
	require := require.New(t)

	a := common.HexToAddress("0x1100000000000000000000000000000000000001")
	b := common.HexToAddress("0x2200000000000000000000000000000000000002")
	sigA := Signature{V: 27}
	sigA.R[31] = 1
	sigA.S[31] = 2
	sigB := PreApprovedSignature(b)

	blob := EncodeSignatures(map[common.Address]Signature{a: sigA, b: sigB})
	require.Len(blob, 2*SignatureLength)

	decoded, err := DecodeSignatures(blob)
	require.Nil(err)
	require.Len(decoded, 2)
	require.Equal(sigA, decoded[0])
	require.Equal(sigB, decoded[1])
	require.True(decoded[1].PreApproved())
	require.False(decoded[0].PreApproved())

	_, err = DecodeSignatures(blob[:70])
	require.NotNil(err)
	var malformed *MalformedSignatureBlobError
	require.ErrorAs(err, &malformed)
	require.Equal(70, malformed.Length)

	empty, err := DecodeSignatures(nil)
	require.Nil(err)
	require.Len(empty, 0)
}

func TestPreApprovedSignature(t *testing.T) {
	require := require.New(t)

	owner := common.HexToAddress("0x2200000000000000000000000000000000000002")
	sig := PreApprovedSignature(owner)
	require.Equal(byte(1), sig.V)
	require.True(bytes.Equal(sig.R[:12], make([]byte, 12)))
	require.Equal(owner.Bytes(), sig.R[12:])
	require.Equal([32]byte{}, sig.S)

	encoded := sig.EncodeRSV()
	require.Len(encoded, SignatureLength)
	recovered, err := SignatureFromBytes(encoded)
	require.Nil(err)
	require.True(recovered.PreApproved())
}
