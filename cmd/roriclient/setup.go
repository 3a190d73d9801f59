package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rori/roriclient/internal/daemon"
	"github.com/rori/roriclient/internal/identity"
	"github.com/rori/roriclient/internal/lookup"
	"github.com/rori/roriclient/internal/setup"
)

func setupCmd() *cobra.Command {
	var (
		archive  bool
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the configuration interactively",
		Long: `Asks for the RORI server and a username, finds or creates the matching
daemon account and writes the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client, err := daemon.Dial(cfg.Daemon)
			if err != nil {
				return err
			}
			defer client.Close()

			flow := setup.New(setup.Options{
				Prompter:   setup.NewPrompter(os.Stdin, os.Stdout),
				Identities: identity.NewManager(client),
				NewResolver: func(base string) lookup.Resolver {
					return lookup.NewClient(base, cfg.Lookup)
				},
				Attempts: attempts,
				Archive:  archive,
				ReadSecret: func() (string, error) {
					secret, err := term.ReadPassword(int(os.Stdin.Fd()))
					fmt.Println()
					return string(secret), err
				},
			})
			return flow.Run(ctx, cfg, configPath)
		},
	}

	cmd.Flags().BoolVar(&archive, "archive", false, "Import the account from an archive")
	cmd.Flags().IntVar(&attempts, "attempts", 3, "Server addresses to try before giving up")
	return cmd
}
