package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/boardkeeper/internal/cli"
	"github.com/terraincognita07/boardkeeper/internal/config"
	"github.com/terraincognita07/boardkeeper/internal/db"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	options := &rootOptions{}

	root := &cobra.Command{
		Use:           "boardkeeper",
		Short:         "Kanban assignment service with ledger integrity tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&options.configPath, "config", "", "path to a YAML config file (default $BOARDKEEPER_CONFIG)")

	root.AddCommand(
		newServeCommand(options),
		newCheckCommand(options),
		newRepairCommand(options),
		newSeedCommand(options),
		newResetPasswordCommand(options),
	)
	return root
}

func (options *rootOptions) load() (config.Config, error) {
	return config.Load(options.configPath)
}

func openStore(cfg config.Config) (*db.Store, func(), error) {
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("database init failed: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db.NewStore(database), closeFn, nil
}

func newCheckCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report ledger and card pointer inconsistencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := options.load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			clean, err := cli.RunCheck(cmd.Context(), store, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !clean {
				return fmt.Errorf("ledger is inconsistent")
			}
			return nil
		},
	}
}

func newRepairCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Realign card pointers with the assignment ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := options.load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			return cli.RunRepair(cmd.Context(), store, cmd.OutOrStdout())
		},
	}
}

func newSeedCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load users, projects, boards and cards from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := cli.LoadSeedFixture(args[0])
			if err != nil {
				return err
			}
			cfg, err := options.load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			_, err = cli.RunSeed(cmd.Context(), store, fixture, cmd.OutOrStdout())
			return err
		},
	}
}

func newResetPasswordCommand(options *rootOptions) *cobra.Command {
	prompt := false
	command := &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Issue a temporary password, or set one interactively with --prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := options.load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			return cli.RunResetPassword(cmd.Context(), store, cli.ResetPasswordOptions{
				Email:  args[0],
				Prompt: prompt,
				Input:  os.Stdin,
				Output: cmd.OutOrStdout(),
			})
		},
	}
	command.Flags().BoolVar(&prompt, "prompt", false, "read the new password from the terminal instead of generating one")
	return command
}
