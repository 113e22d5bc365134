package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quorumlabs/safekit/account"
	"github.com/quorumlabs/safekit/client"
	safecommon "github.com/quorumlabs/safekit/common"
	"github.com/quorumlabs/safekit/safe"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func PendingListCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	pending, err := e.client.Transactions(ctx, &client.TxQuery{Confirmed: client.Confirmed(false)})
	if err != nil {
		return err
	}
	entries, err := pending.Collect()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		value := decimal.NewFromBigInt(entry.Value.Big(), -18)
		fmt.Printf("nonce=%-4d %s %s ether %s %d/%d confirmations\n",
			entry.Nonce, entry.To.Hex(), value, entry.SafeTxHash,
			len(entry.Confirmations), entry.ConfirmationsRequired)
	}
	return nil
}

func ProposeTransactionCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	to := c.String("to")
	if !common.IsHexAddress(to) {
		return fmt.Errorf("invalid receiver address %s", to)
	}
	amount, err := decimal.NewFromString(c.String("amount"))
	if err != nil {
		return err
	}
	value := amount.Shift(18).BigInt()

	var data []byte
	if d := c.String("data"); d != "" {
		data = safecommon.DecodeHexOrPanic(d)
	}
	operation := safe.OperationCall
	if c.Bool("delegatecall") {
		operation = safe.OperationDelegateCall
	}

	tx, err := e.account.CreateTransaction(ctx, common.HexToAddress(to), value, data, operation)
	if err != nil {
		return err
	}
	result, err := e.account.SignTransaction(ctx, tx, nil)
	if err != nil {
		return err
	}
	if result.Ready {
		fmt.Printf("proposal %s ready with %d signatures, submit it with the submit command\n", tx.ID(), len(result.Signatures))
	} else {
		fmt.Printf("proposal %s queued with %d of %d signatures\n", tx.ID(), len(result.Signatures), result.Required)
	}
	return nil
}

func RejectTransactionCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	tx := e.account.CreateRejection(c.Uint64("nonce"))
	result, err := e.account.SignTransaction(ctx, tx, nil)
	if err != nil {
		return err
	}
	fmt.Printf("rejection %s at nonce %d with %d of %d signatures\n", tx.ID(), tx.Nonce, len(result.Signatures), result.Required)
	return nil
}

func SignTransactionCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	tx, _, err := resolveTransaction(ctx, e, c.String("tx"))
	if err != nil {
		return err
	}
	fresh, err := e.account.AddSignatures(ctx, tx)
	if errors.Is(err, safe.ErrNothingToDo) {
		fmt.Printf("proposal %s already has enough confirmations\n", tx.ID())
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("added %d signatures to %s\n", len(fresh), tx.ID())
	return nil
}

func SubmitTransactionCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	tx, _, err := resolveTransaction(ctx, e, c.String("tx"))
	if err != nil {
		return err
	}
	opts, err := safe.SignerInit(e.conf.Safe.SubmitterKey, e.entry.ChainID)
	if err != nil {
		return err
	}
	opts.Context = ctx

	result, err := e.account.SignTransaction(ctx, tx, &account.SignOptions{
		Submit:    true,
		Submitter: opts.From,
	})
	if err != nil {
		return err
	}
	receipt, err := e.contract.ExecTransaction(opts, result.Transaction, result.EncodedSignatures())
	if err != nil {
		return err
	}
	fmt.Printf("submitted %s => %s\n", tx.ID(), receipt.Hash().Hex())
	return nil
}
