package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quorumlabs/safekit/store"
	"github.com/urfave/cli/v2"
)

func SafeAddCmd(c *cli.Context) error {
	ctx := context.Background()
	_, registry, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer registry.Close()

	address := c.String("address")
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid safe address %s", address)
	}
	entry, err := registry.WriteSafe(ctx, c.String("alias"), common.HexToAddress(address), c.Int64("chain"))
	if err != nil {
		return err
	}
	if c.Bool("default") {
		err = registry.WriteOrUpdateProperty(ctx, store.DefaultSafeKey, entry.Alias)
		if err != nil {
			return err
		}
	}
	fmt.Printf("registered %s => %s on chain %d\n", entry.Alias, entry.Address.Hex(), entry.ChainID)
	return nil
}

func SafeRemoveCmd(c *cli.Context) error {
	ctx := context.Background()
	_, registry, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer registry.Close()

	return registry.DeleteSafe(ctx, c.String("alias"))
}

func SafeListCmd(c *cli.Context) error {
	ctx := context.Background()
	_, registry, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer registry.Close()

	safes, err := registry.ListSafes(ctx)
	if err != nil {
		return err
	}
	def, _ := registry.ReadProperty(ctx, store.DefaultSafeKey)
	for _, s := range safes {
		mark := " "
		if s.Alias == def {
			mark = "*"
		}
		fmt.Printf("%s %-16s %s chain=%d\n", mark, s.Alias, s.Address.Hex(), s.ChainID)
	}
	return nil
}

func SafeShowCmd(c *cli.Context) error {
	ctx := context.Background()
	e, err := makeEnv(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	details, err := e.client.SafeDetails(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("address:   %s\n", details.Address.Hex())
	fmt.Printf("version:   %s\n", details.Version)
	fmt.Printf("nonce:     %d\n", details.Nonce)
	fmt.Printf("threshold: %d\n", details.Threshold)
	for _, o := range details.Owners {
		fmt.Printf("owner:     %s\n", o.Hex())
	}
	return nil
}
