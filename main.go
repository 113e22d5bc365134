package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/quorumlabs/safekit/cmd"
	"github.com/urfave/cli/v2"
)

//go:embed README.md
var README string

//go:embed VERSION
var VERSION string

func main() {
	VERSION = strings.TrimSpace(VERSION)
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "~/.safekit/config.toml",
		Usage:   "The configuration file path",
	}
	safeFlag := &cli.StringFlag{
		Name:    "safe",
		Aliases: []string{"s"},
		Usage:   "The registered safe alias, defaults to the one marked default",
	}
	app := &cli.App{
		Name:                 "safekit",
		Usage:                "Gnosis Safe multisig tooling",
		Version:              VERSION,
		EnableBashCompletion: true,
		Metadata: map[string]any{
			"README":  README,
			"VERSION": VERSION,
		},
		Commands: []*cli.Command{
			{
				Name:  "safe",
				Usage: "Manage the local safe registry",
				Subcommands: []*cli.Command{
					{
						Name:   "add",
						Usage:  "Register a safe under an alias",
						Action: cmd.SafeAddCmd,
						Flags: []cli.Flag{
							configFlag,
							&cli.StringFlag{
								Name:  "alias",
								Usage: "The local alias of the safe",
							},
							&cli.StringFlag{
								Name:  "address",
								Usage: "The safe contract address",
							},
							&cli.Int64Flag{
								Name:  "chain",
								Value: 1,
								Usage: "The chain id the safe is deployed on",
							},
							&cli.BoolFlag{
								Name:  "default",
								Usage: "Mark this safe as the default",
							},
						},
					},
					{
						Name:   "remove",
						Usage:  "Remove a registered safe",
						Action: cmd.SafeRemoveCmd,
						Flags: []cli.Flag{
							configFlag,
							&cli.StringFlag{
								Name:  "alias",
								Usage: "The local alias of the safe",
							},
						},
					},
					{
						Name:   "list",
						Usage:  "List registered safes",
						Action: cmd.SafeListCmd,
						Flags:  []cli.Flag{configFlag},
					},
					{
						Name:   "show",
						Usage:  "Show the on-chain state of a safe",
						Action: cmd.SafeShowCmd,
						Flags:  []cli.Flag{configFlag, safeFlag},
					},
				},
			},
			{
				Name:   "pending",
				Usage:  "List pending proposals of a safe",
				Action: cmd.PendingListCmd,
				Flags:  []cli.Flag{configFlag, safeFlag},
			},
			{
				Name:   "propose",
				Usage:  "Propose a safe transaction and sign it with local signers",
				Action: cmd.ProposeTransactionCmd,
				Flags: []cli.Flag{
					configFlag, safeFlag,
					&cli.StringFlag{
						Name:  "to",
						Usage: "The receiver address",
					},
					&cli.StringFlag{
						Name:  "amount",
						Value: "0",
						Usage: "The ether amount to transfer",
					},
					&cli.StringFlag{
						Name:  "data",
						Usage: "The hex encoded calldata",
					},
					&cli.BoolFlag{
						Name:  "delegatecall",
						Usage: "Use a delegate call instead of a call",
					},
				},
			},
			{
				Name:   "reject",
				Usage:  "Propose an empty transaction to supersede a pending nonce",
				Action: cmd.RejectTransactionCmd,
				Flags: []cli.Flag{
					configFlag, safeFlag,
					&cli.Uint64Flag{
						Name:  "nonce",
						Usage: "The nonce of the proposal to supersede",
					},
				},
			},
			{
				Name:   "sign",
				Usage:  "Add local signatures to a pending proposal",
				Action: cmd.SignTransactionCmd,
				Flags: []cli.Flag{
					configFlag, safeFlag,
					&cli.StringFlag{
						Name:  "tx",
						Usage: "The proposal nonce or transaction hash",
					},
				},
			},
			{
				Name:   "submit",
				Usage:  "Submit a fully confirmed proposal on chain",
				Action: cmd.SubmitTransactionCmd,
				Flags: []cli.Flag{
					configFlag, safeFlag,
					&cli.StringFlag{
						Name:  "tx",
						Usage: "The proposal nonce or transaction hash",
					},
				},
			},
			{
				Name:  "delegate",
				Usage: "Manage transaction service delegates",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List delegates of the safe",
						Action: cmd.DelegateListCmd,
						Flags:  []cli.Flag{configFlag, safeFlag},
					},
					{
						Name:   "add",
						Usage:  "Authorize a delegate to propose for the safe",
						Action: cmd.DelegateAddCmd,
						Flags: []cli.Flag{
							configFlag, safeFlag,
							&cli.StringFlag{
								Name:  "delegate",
								Usage: "The delegate address",
							},
							&cli.StringFlag{
								Name:  "label",
								Usage: "A readable label for the delegate",
							},
						},
					},
					{
						Name:   "remove",
						Usage:  "Revoke a delegate of the safe",
						Action: cmd.DelegateRemoveCmd,
						Flags: []cli.Flag{
							configFlag, safeFlag,
							&cli.StringFlag{
								Name:  "delegate",
								Usage: "The delegate address",
							},
						},
					},
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
	}
}
