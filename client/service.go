package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/quorumlabs/safekit/safe"
)

// TransactionServiceURLs lists the public transaction service deployment for
// each supported chain. No trailing slashes.
var TransactionServiceURLs = map[int64]string{
	1:     "https://safe-transaction-mainnet.safe.global",
	10:    "https://safe-transaction-optimism.safe.global",
	56:    "https://safe-transaction-bsc.safe.global",
	100:   "https://safe-transaction-gnosis-chain.safe.global",
	137:   "https://safe-transaction-polygon.safe.global",
	8453:  "https://safe-transaction-base.safe.global",
	42161: "https://safe-transaction-arbitrum.safe.global",
	43114: "https://safe-transaction-avalanche.safe.global",
}

const (
	proposalOrigin        = "quorumlabs/safekit"
	serviceNotFoundPhrase = "The requested resource was not found on this server"
)

// ServiceClient talks to a Safe transaction service deployment over HTTP.
// Requests are sequential and blocking; pagination is exposed through the
// lazy iterators of the Client interface.
type ServiceClient struct {
	address common.Address
	baseURL string
	http    *http.Client
}

func NewServiceClient(address common.Address, chainID int64, overrideURL string) (*ServiceClient, error) {
	baseURL := overrideURL
	if baseURL == "" {
		url, found := TransactionServiceURLs[chainID]
		if !found {
			return nil, &UnsupportedChainError{ChainID: chainID}
		}
		baseURL = url
	}
	return &ServiceClient{
		address: address,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *ServiceClient) SafeDetails(ctx context.Context) (*SafeDetails, error) {
	body, err := c.get(ctx, fmt.Sprintf("safes/%s", c.address.Hex()))
	if err != nil {
		return nil, err
	}
	var details SafeDetails
	err = json.Unmarshal(body, &details)
	if err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *ServiceClient) NextNonce(ctx context.Context) (uint64, error) {
	details, err := c.SafeDetails(ctx)
	if err != nil {
		return 0, err
	}
	return details.Nonce, nil
}

type servicePage struct {
	Count   int               `json:"count"`
	Next    string            `json:"next"`
	Results []json.RawMessage `json:"results"`
}

func (c *ServiceClient) AllTransactions(ctx context.Context) *TxIterator {
	url := fmt.Sprintf("safes/%s/all-transactions", c.address.Hex())
	var pending []json.RawMessage
	done := false
	return NewTxIterator(func() (*MultisigTransaction, error) {
		for {
			if len(pending) > 0 {
				raw := pending[0]
				pending = pending[1:]
				var txn MultisigTransaction
				err := json.Unmarshal(raw, &txn)
				if err != nil {
					return nil, err
				}
				return &txn, nil
			}
			if done || url == "" {
				return nil, nil
			}
			body, err := c.get(ctx, url)
			if err != nil {
				return nil, err
			}
			var page servicePage
			err = json.Unmarshal(body, &page)
			if err != nil {
				return nil, err
			}
			pending = page.Results
			url = page.Next
			if url == "" {
				done = true
			}
		}
	})
}

func (c *ServiceClient) Transactions(ctx context.Context, query *TxQuery) (*TxIterator, error) {
	nextNonce, err := c.NextNonce(ctx)
	if err != nil {
		return nil, err
	}
	return FilterTransactions(c.AllTransactions(ctx), nextNonce, query), nil
}

func (c *ServiceClient) Confirmations(ctx context.Context, id safe.TxID) *ConfirmationIterator {
	url := fmt.Sprintf("multisig-transactions/%s/confirmations", id)
	var pending []json.RawMessage
	done := false
	return NewConfirmationIterator(func() (*Confirmation, error) {
		for {
			if len(pending) > 0 {
				raw := pending[0]
				pending = pending[1:]
				var conf Confirmation
				err := json.Unmarshal(raw, &conf)
				if err != nil {
					return nil, err
				}
				return &conf, nil
			}
			if done || url == "" {
				return nil, nil
			}
			body, err := c.get(ctx, url)
			if err != nil {
				return nil, err
			}
			var page servicePage
			err = json.Unmarshal(body, &page)
			if err != nil {
				return nil, err
			}
			pending = page.Results
			url = page.Next
			if url == "" {
				done = true
			}
		}
	})
}

func (c *ServiceClient) Transaction(ctx context.Context, id safe.TxID) (*MultisigTransaction, error) {
	body, err := c.get(ctx, fmt.Sprintf("multisig-transactions/%s", id))
	if err != nil {
		var respErr *ClientResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, &MultisigTransactionNotFoundError{TxID: id, URL: respErr.URL}
		}
		return nil, err
	}
	var txn MultisigTransaction
	err = json.Unmarshal(body, &txn)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (c *ServiceClient) ProposeTransaction(ctx context.Context, tx *safe.Transaction, signatures map[common.Address]safe.Signature, sender common.Address) error {
	logger.Printf("client.ProposeTransaction(%s, %d, %d signatures)", tx.SafeAddress, tx.Nonce, len(signatures))
	entry := NewMultisigTransaction(tx, 0)
	payload := map[string]any{
		"safe":                    entry.Safe.Hex(),
		"to":                      entry.To.Hex(),
		"value":                   entry.Value.Big().String(),
		"data":                    hexOrNull(tx.Data),
		"operation":               int(tx.Operation),
		"gasToken":                entry.GasToken.Hex(),
		"safeTxGas":               entry.SafeTxGas.Big().String(),
		"baseGas":                 entry.BaseGas.Big().String(),
		"gasPrice":                entry.GasPrice.Big().String(),
		"refundReceiver":          entry.RefundReceiver.Hex(),
		"nonce":                   tx.Nonce,
		"contractTransactionHash": string(tx.ID()),
		"sender":                  sender.Hex(),
		"signature":               "0x" + hex.EncodeToString(safe.EncodeSignatures(signatures)),
		"origin":                  proposalOrigin,
	}
	_, err := c.post(ctx, fmt.Sprintf("safes/%s/multisig-transactions", tx.SafeAddress.Hex()), payload)
	return err
}

func (c *ServiceClient) PostSignatures(ctx context.Context, id safe.TxID, signatures map[common.Address]safe.Signature) error {
	for _, sig := range safe.OrderSignatures(signatures) {
		payload := map[string]any{
			"signature": "0x" + hex.EncodeToString(sig.EncodeRSV()),
			"origin":    proposalOrigin,
		}
		url := fmt.Sprintf("multisig-transactions/%s/confirmations", id)
		_, err := c.post(ctx, url, payload)
		if err != nil {
			var respErr *ClientResponseError
			if errors.As(err, &respErr) && strings.Contains(respErr.Body, serviceNotFoundPhrase) {
				return &MultisigTransactionNotFoundError{TxID: id, URL: respErr.URL}
			}
			return err
		}
	}
	return nil
}

func (c *ServiceClient) EstimateGas(ctx context.Context, to common.Address, value *big.Int, data []byte, operation safe.Operation) (uint64, bool, error) {
	payload := map[string]any{
		"to":        to.Hex(),
		"value":     value.String(),
		"data":      hexOrNull(data),
		"operation": int(operation),
	}
	body, err := c.post(ctx, fmt.Sprintf("safes/%s/multisig-transactions/estimations", c.address.Hex()), payload)
	if err != nil {
		// best effort, the caller estimates independently
		logger.Verbosef("client.EstimateGas(%s) => %v", to.Hex(), err)
		return 0, false, nil
	}
	var result struct {
		SafeTxGas *BigInt `json:"safeTxGas"`
	}
	err = json.Unmarshal(body, &result)
	if err != nil || result.SafeTxGas == nil {
		return 0, false, err
	}
	return result.SafeTxGas.Big().Uint64(), true, nil
}

// DelegateApprovalDigest is the time bucketed challenge a current signer
// signs to manage delegates: keccak(checksumAddress || floor(unix/3600)).
func DelegateApprovalDigest(delegate common.Address, at time.Time) [32]byte {
	totp := at.Unix() / 3600
	var digest [32]byte
	copy(digest[:], crypto.Keccak256([]byte(fmt.Sprintf("%s%d", delegate.Hex(), totp))))
	return digest
}

func (c *ServiceClient) Delegates(ctx context.Context) ([]*Delegate, error) {
	url := fmt.Sprintf("delegates/?safe=%s", c.address.Hex())
	var delegates []*Delegate
	for url != "" {
		body, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}
		var page struct {
			Next    string      `json:"next"`
			Results []*Delegate `json:"results"`
		}
		err = json.Unmarshal(body, &page)
		if err != nil {
			return nil, err
		}
		delegates = append(delegates, page.Results...)
		url = page.Next
	}
	return delegates, nil
}

func (c *ServiceClient) AddDelegate(ctx context.Context, delegate common.Address, label string, signer DigestSigner) error {
	signature, err := signDelegateChallenge(ctx, delegate, signer)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"safe":      c.address.Hex(),
		"delegate":  delegate.Hex(),
		"delegator": signer.Address().Hex(),
		"label":     label,
		"signature": signature,
	}
	_, err = c.post(ctx, "delegates", payload)
	return err
}

func (c *ServiceClient) RemoveDelegate(ctx context.Context, delegate common.Address, signer DigestSigner) error {
	signature, err := signDelegateChallenge(ctx, delegate, signer)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"delegate":  delegate.Hex(),
		"delegator": signer.Address().Hex(),
		"signature": signature,
	}
	return c.request(ctx, "DELETE", fmt.Sprintf("delegates/%s", delegate.Hex()), payload, nil)
}

// DigestSigner is the delegate management capability, signing raw digests
// rather than transaction records.
type DigestSigner interface {
	Address() common.Address
	SignDigest(ctx context.Context, digest [32]byte) (*safe.Signature, error)
}

func signDelegateChallenge(ctx context.Context, delegate common.Address, signer DigestSigner) (string, error) {
	digest := DelegateApprovalDigest(delegate, time.Now())
	sig, err := signer.SignDigest(ctx, digest)
	if err != nil {
		return "", err
	}
	if sig == nil {
		return "", fmt.Errorf("signer %s declined the delegate challenge", signer.Address().Hex())
	}
	return "0x" + hex.EncodeToString(sig.EncodeRSV()), nil
}

func (c *ServiceClient) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := c.request(ctx, "GET", url, nil, &body)
	return body, err
}

func (c *ServiceClient) post(ctx context.Context, url string, payload any) ([]byte, error) {
	var body []byte
	err := c.request(ctx, "POST", url, payload, &body)
	return body, err
}

func (c *ServiceClient) request(ctx context.Context, method, url string, payload any, out *[]byte) error {
	// paged requests carry the full URL already; the trailing slash on
	// constructed paths is required by the service
	apiURL := url
	if !strings.HasPrefix(url, c.baseURL) {
		apiURL = fmt.Sprintf("%s/api/v1/%s/", c.baseURL, strings.TrimSuffix(url, "/"))
		if strings.Contains(url, "?") {
			parts := strings.SplitN(url, "?", 2)
			apiURL = fmt.Sprintf("%s/api/v1/%s/?%s", c.baseURL, strings.TrimSuffix(parts[0], "/"), parts[1])
		}
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logger.Verbosef("client.request(%s, %s) => %d %d bytes", method, apiURL, resp.StatusCode, len(body))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ClientResponseError{URL: apiURL, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out != nil {
		*out = body
	}
	return nil
}

func hexOrNull(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return "0x" + hex.EncodeToString(b)
}
