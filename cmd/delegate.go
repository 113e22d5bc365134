package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quorumlabs/safekit/client"
	"github.com/quorumlabs/safekit/safe"
	"github.com/urfave/cli/v2"
)

func DelegateListCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	service, ok := e.client.(*client.ServiceClient)
	if !ok {
		return fmt.Errorf("delegates require the transaction service")
	}
	delegates, err := service.Delegates(ctx)
	if err != nil {
		return err
	}
	for _, d := range delegates {
		fmt.Printf("%-16s %s by %s\n", d.Label, d.Delegate.Hex(), d.Delegator.Hex())
	}
	return nil
}

func DelegateAddCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	service, ok := e.client.(*client.ServiceClient)
	if !ok {
		return fmt.Errorf("delegates require the transaction service")
	}
	signer, err := delegateSigner(e)
	if err != nil {
		return err
	}
	delegate := c.String("delegate")
	if !common.IsHexAddress(delegate) {
		return fmt.Errorf("invalid delegate address %s", delegate)
	}
	return service.AddDelegate(ctx, common.HexToAddress(delegate), c.String("label"), signer)
}

func DelegateRemoveCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	service, ok := e.client.(*client.ServiceClient)
	if !ok {
		return fmt.Errorf("delegates require the transaction service")
	}
	signer, err := delegateSigner(e)
	if err != nil {
		return err
	}
	delegate := c.String("delegate")
	if !common.IsHexAddress(delegate) {
		return fmt.Errorf("invalid delegate address %s", delegate)
	}
	return service.RemoveDelegate(ctx, common.HexToAddress(delegate), signer)
}

func delegateSigner(e *env) (*safe.KeySigner, error) {
	if len(e.conf.Safe.SignerKeys) == 0 {
		return nil, safe.ErrNoLocalSigners
	}
	return safe.NewKeySigner(e.conf.Safe.SignerKeys[0])
}
