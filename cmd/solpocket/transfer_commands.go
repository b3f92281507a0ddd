package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"

	chain "github.com/solpocket/solpocket/service/solana"
	"github.com/solpocket/solpocket/service/wallet"
)

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Submit a transfer through the wallet daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Recipient address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount as a decimal string (e.g. 0.5)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Asset to transfer: native or token",
				Value: "native",
			},
			&cli.BoolFlag{
				Name:  "await",
				Usage: "Wait for chain confirmation before exiting",
			},
			&cli.DurationFlag{
				Name:  "await-timeout",
				Usage: "Confirmation wait deadline",
				Value: 60 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			req := wallet.TransferRequest{
				Token:     wallet.TokenSelector(c.String("token")),
				Recipient: c.String("to"),
				Amount:    c.String("amount"),
			}
			if req.Token != wallet.SelectNative && req.Token != wallet.SelectToken {
				return fmt.Errorf("token must be %q or %q", wallet.SelectNative, wallet.SelectToken)
			}

			cl := newClient(c)

			// Surface validity flags before submitting so the user sees which
			// input is wrong rather than a bare rejection.
			validity, err := cl.Validate(c.Context, req)
			if err != nil {
				return err
			}
			if !validity.Submittable() {
				data, _ := json.Marshal(validity)
				return fmt.Errorf("transfer is not submittable: %s", data)
			}

			sig, err := cl.Transfer(c.Context, req)
			if err != nil {
				return err
			}
			fmt.Printf("Submitted: %s\n", sig)

			if !c.Bool("await") {
				return nil
			}

			deadline := time.Now().Add(c.Duration("await-timeout"))
			for time.Now().Before(deadline) {
				status, err := cl.TransferStatus(c.Context, sig)
				if err != nil {
					return err
				}
				if status != wallet.StatusPending {
					fmt.Printf("Status: %s\n", status)
					return nil
				}
				time.Sleep(2 * time.Second)
			}
			return wallet.ErrConfirmationTimeout
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Sign and send a SOL transfer with a local keypair, bypassing the daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "keypair",
				Usage:    "Path to a solana-keygen JSON keypair file",
				EnvVars:  []string{"KEYPAIR_PATH"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Recipient address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount in SOL as a decimal string",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "await",
				Usage: "Wait for chain confirmation before exiting",
			},
		},
		Action: func(c *cli.Context) error {
			key, err := solana.PrivateKeyFromSolanaKeygenFile(c.String("keypair"))
			if err != nil {
				return fmt.Errorf("failed to load keypair: %w", err)
			}

			rpcURL := c.String("rpc-url")
			logger := discardLogger()
			session := wallet.NewLocalSession(key, chain.NewRPCClient(rpcURL), logger)

			store := wallet.NewStore(0)
			// Fetch the live balance so validation reflects reality.
			reader := chain.NewChainReader(rpcURL)
			balances, err := wallet.NewBalanceSynchronizer(reader, store, key.PublicKey().String(), wallet.TokenConfig{}, nil, logger)
			if err != nil {
				return err
			}
			if _, err := balances.Refresh(c.Context); err != nil {
				return fmt.Errorf("failed to fetch balance: %w", err)
			}

			orchestrator, err := wallet.NewTransferOrchestrator(session, store, wallet.TokenConfig{}, 0, 0, nil, logger)
			if err != nil {
				return err
			}

			sig, err := orchestrator.Submit(c.Context, wallet.TransferRequest{
				Token:     wallet.SelectNative,
				Recipient: c.String("to"),
				Amount:    c.String("amount"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("Submitted: %s\n", sig)

			if !c.Bool("await") {
				return nil
			}

			status, err := wallet.AwaitConfirmation(c.Context, reader, sig, wallet.AwaitOptions{}, logger)
			if err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", status)
			return nil
		},
	}
}

func awaitCommand() *cli.Command {
	return &cli.Command{
		Name:  "await",
		Usage: "Wait for a signature to confirm on chain",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "signature",
				Usage:    "Transaction signature",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall deadline",
				Value: 60 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Polling interval",
				Value: 2 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			sig, err := solana.SignatureFromBase58(c.String("signature"))
			if err != nil {
				return fmt.Errorf("invalid signature: %w", err)
			}

			reader := chain.NewChainReader(c.String("rpc-url"))
			status, err := wallet.AwaitConfirmation(c.Context, reader, sig, wallet.AwaitOptions{
				Interval: c.Duration("interval"),
				Timeout:  c.Duration("timeout"),
			}, discardLogger())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Status: %s\n", status)
				return err
			}
			fmt.Printf("Status: %s\n", status)
			return nil
		},
	}
}
