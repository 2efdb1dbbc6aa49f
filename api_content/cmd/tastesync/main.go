package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tastesync/api_content/internal/store"
	"tastesync/pkg/config"
	"tastesync/pkg/database"
	"tastesync/pkg/logging"
	"tastesync/pkg/version"
)

const serviceName = "tastesync"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "TasteSync content service",
		Long:          "TasteSync turns long-form writing into platform-ready posts, threads and emails.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLoggerWithService(serviceName)
			config.LoadEnv(logger)
			dbCfg := database.LoadConfig()
			dbCfg.URL = config.RequireEnv("DATABASE_URL")

			db, err := database.Connect(cmd.Context(), dbCfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return store.Migrate(db, logger)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, built %s)\n", serviceName, info.Version, version.GetShortCommit(), info.BuildDate)
			return nil
		},
	}
}
