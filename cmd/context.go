package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/quorumlabs/safekit/account"
	"github.com/quorumlabs/safekit/client"
	safecommon "github.com/quorumlabs/safekit/common"
	"github.com/quorumlabs/safekit/config"
	"github.com/quorumlabs/safekit/safe"
	"github.com/quorumlabs/safekit/store"
	"github.com/urfave/cli/v2"
)

type env struct {
	conf     *config.Configuration
	registry *store.SQLite3Store
	entry    *store.Safe
	contract *safe.Contract
	client   client.Client
	account  *account.Account
}

func (e *env) Close() {
	if e.contract != nil {
		e.contract.Close()
	}
	if e.registry != nil {
		e.registry.Close()
	}
}

func openRegistry(c *cli.Context) (*config.Configuration, *store.SQLite3Store, error) {
	conf, err := config.ReadConfiguration(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if conf.Safe == nil {
		return nil, nil, fmt.Errorf("missing [safe] section in %s", c.String("config"))
	}
	registry, err := store.OpenSQLite3Store(safecommon.ExpandTilde(conf.Safe.StorePath))
	if err != nil {
		return nil, nil, err
	}
	return conf, registry, nil
}

// makeEnv resolves the wallet alias, dials the chain and builds the account
// with all locally configured signers.
func makeEnv(ctx context.Context, c *cli.Context) (*env, error) {
	conf, registry, err := openRegistry(c)
	if err != nil {
		return nil, err
	}
	alias := c.String("safe")
	if alias == "" {
		alias, err = registry.ReadProperty(ctx, store.DefaultSafeKey)
		if err != nil || alias == "" {
			registry.Close()
			return nil, fmt.Errorf("no safe alias given and no default registered: %v", err)
		}
	}
	entry, err := registry.ReadSafe(ctx, alias)
	if err != nil || entry == nil {
		registry.Close()
		return nil, fmt.Errorf("unknown safe alias %s: %v", alias, err)
	}

	contract, err := safe.DialContract(conf.Safe.ChainRPC, entry.Address)
	if err != nil {
		registry.Close()
		return nil, err
	}
	cl, err := client.NewServiceClient(entry.Address, entry.ChainID, conf.Safe.ServiceURL)
	if err != nil {
		contract.Close()
		registry.Close()
		return nil, err
	}

	var signers []safe.Signer
	for _, hexKey := range conf.Safe.SignerKeys {
		signer, err := safe.NewKeySigner(hexKey)
		if err != nil {
			contract.Close()
			registry.Close()
			return nil, err
		}
		signers = append(signers, signer)
	}
	acc, err := account.New(ctx, entry.Address, entry.ChainID, cl, contract, signers)
	if err != nil {
		contract.Close()
		registry.Close()
		return nil, err
	}
	return &env{
		conf:     conf,
		registry: registry,
		entry:    entry,
		contract: contract,
		client:   cl,
		account:  acc,
	}, nil
}

// resolveTransaction finds a queued proposal by transaction id or decimal
// nonce and reconstructs the canonical record.
func resolveTransaction(ctx context.Context, e *env, ref string) (*safe.Transaction, *client.MultisigTransaction, error) {
	if strings.HasPrefix(ref, "0x") && len(ref) == 66 {
		entry, err := e.client.Transaction(ctx, safe.TxID(ref))
		if err != nil {
			return nil, nil, err
		}
		return entry.AsTransaction(e.account.Version(), e.entry.ChainID), entry, nil
	}
	nonce, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid transaction reference %s", ref)
	}
	pending, err := e.client.Transactions(ctx, &client.TxQuery{
		Confirmed:     client.Confirmed(false),
		StartingNonce: nonce,
		EndingNonce:   &nonce,
	})
	if err != nil {
		return nil, nil, err
	}
	entries, err := pending.Collect()
	if err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("no pending transaction at nonce %d", nonce)
	}
	entry := entries[len(entries)-1]
	return entry.AsTransaction(e.account.Version(), e.entry.ChainID), entry, nil
}
