package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/solpocket/solpocket/client"
	"github.com/solpocket/solpocket/service/wallet"
)

func newClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Show the wallet balance",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Force a chain query before responding",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			snap, err := cl.Balance(c.Context, c.Bool("refresh"))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return json.NewEncoder(os.Stdout).Encode(snap)
			}

			fmt.Printf("SOL: %s\n", wallet.FormatAmount(int64(snap.Native), wallet.NativeDecimals))
			if snap.Token > 0 || snap.TokenStale {
				stale := ""
				if snap.TokenStale {
					stale = " (stale)"
				}
				fmt.Printf("Token: %d%s\n", snap.Token, stale)
			}
			fmt.Printf("Fetched: %s\n", snap.FetchedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent transactions",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Force a chain query before responding",
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "jq expression applied to each record; only truthy matches are shown (e.g. '.amount < 0')",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			records, err := cl.History(c.Context, c.Int("limit"), c.Bool("refresh"))
			if err != nil {
				return err
			}

			if filter := c.String("filter"); filter != "" {
				records, err = filterRecords(records, filter)
				if err != nil {
					return err
				}
			}

			if c.Bool("json") {
				return json.NewEncoder(os.Stdout).Encode(records)
			}

			if len(records) == 0 {
				fmt.Println("No transactions.")
				return nil
			}
			for _, r := range records {
				ts := "-"
				if !r.Timestamp.IsZero() {
					ts = r.Timestamp.Local().Format("2006-01-02 15:04")
				}
				fmt.Printf("%-10s %-16s %s  %s\n", r.Status, ts, r.Description, r.Signature)
			}
			return nil
		},
	}
}

// filterRecords keeps records for which the jq expression yields a truthy
// value. Records are evaluated as plain JSON objects.
func filterRecords(records []wallet.TransactionRecord, filter string) ([]wallet.TransactionRecord, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	var out []wallet.TransactionRecord
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record: %w", err)
		}
		var obj interface{}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}

		iter := code.Run(obj)
		v, ok := iter.Next()
		if !ok {
			continue
		}
		if _, isErr := v.(error); isErr {
			continue
		}
		if isTruthy(v) {
			out = append(out, r)
		}
	}
	return out, nil
}

// isTruthy follows jq semantics: false and null are falsy, everything else
// is truthy.
func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}

// discardLogger is used by commands that only want errors surfaced via return
// values.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
