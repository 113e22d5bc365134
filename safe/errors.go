package safe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoLocalSigners means no owner of the Safe is under local control.
	ErrNoLocalSigners = errors.New("no local signers available, try again with an explicit submitter")

	// ErrNothingToDo means a signature top-up was requested for a proposal
	// that already has enough confirmations.
	ErrNothingToDo = errors.New("proposal already has enough confirmations")
)

type NotASignerError struct {
	Signer common.Address
}

func (e *NotASignerError) Error() string {
	return fmt.Sprintf("%s is not a valid signer", e.Signer.Hex())
}

type NotEnoughSignaturesError struct {
	Required int
	Actual   int
}

func (e *NotEnoughSignaturesError) Error() string {
	return fmt.Sprintf("not enough signatures, %d more needed; propose without submitting to publish the partial set instead", e.Required-e.Actual)
}

type MalformedSignatureBlobError struct {
	Length int
}

func (e *MalformedSignatureBlobError) Error() string {
	return fmt.Sprintf("malformed signature blob of length %d, must be a multiple of %d", e.Length, SignatureLength)
}

type ValueMismatchError struct {
	Required string
	Declared string
}

func (e *ValueMismatchError) Error() string {
	return fmt.Sprintf("batch forwards %s wei but the wrapping call declares only %s", e.Required, e.Declared)
}

// safeErrorCodes maps the revert codes of the Safe contract to readable
// messages, per the contract documentation.
var safeErrorCodes = map[string]string{
	"GS000": "Could not finish initialization",
	"GS001": "Threshold needs to be defined",
	"GS010": "Not enough gas to execute Safe transaction",
	"GS011": "Could not pay gas costs with ether",
	"GS012": "Could not pay gas costs with token",
	"GS013": "Safe transaction failed when gasPrice and safeTxGas were 0",
	"GS020": "Signatures data too short",
	"GS021": "Invalid contract signature location: inside static part",
	"GS022": "Invalid contract signature location: length not present",
	"GS023": "Invalid contract signature location: data not complete",
	"GS024": "Invalid contract signature provided",
	"GS025": "Hash has not been approved",
	"GS026": "Invalid owner provided",
	"GS030": "Only owners can approve a hash",
	"GS031": "Method can only be called from this contract",
	"GS100": "Modules have already been initialized",
	"GS101": "Invalid module address provided",
	"GS102": "Module has already been added",
	"GS103": "Invalid prevModule, module pair provided",
	"GS104": "Method can only be called from an enabled module",
	"GS105": "Invalid starting point for fetching paginated modules",
	"GS106": "Invalid page size for fetching paginated modules",
	"GS200": "Owners have already been set up",
	"GS201": "Threshold cannot exceed owner count",
	"GS202": "Threshold needs to be greater than 0",
	"GS203": "Invalid owner address provided",
	"GS204": "Address is already an owner",
	"GS205": "Invalid prevOwner, owner pair provided",
	"GS300": "Guard does not implement IERC165",
}

type SafeLogicError struct {
	Code string
}

func (e *SafeLogicError) Error() string {
	return fmt.Sprintf("%s (%s)", safeErrorCodes[e.Code], e.Code)
}

// MapSafeError rewrites a contract revert that wraps exactly one known Safe
// error code into a SafeLogicError. Any other error passes through unchanged.
func MapSafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, prefix := range []string{"execution reverted: ", "revert: "} {
		if i := strings.Index(msg, prefix); i >= 0 {
			msg = msg[i+len(prefix):]
			break
		}
	}
	code := strings.TrimSpace(msg)
	if _, found := safeErrorCodes[code]; found {
		return &SafeLogicError{Code: code}
	}
	return err
}
