package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Load .env for local development; real deployments set the environment.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "solpocket",
		Usage: "Solana wallet client CLI",
		Description: `A command-line tool for the solpocket wallet daemon.

Use this CLI to inspect balances and history, submit transfers, and wait for
chain confirmation.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			balanceCommand(),
			historyCommand(),
			transferCommand(),
			sendCommand(),
			awaitCommand(),
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Wallet daemon URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Solana RPC endpoint for direct chain access",
				EnvVars: []string{"SOLANA_RPC_URL"},
				Value:   "https://api.devnet.solana.com",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
