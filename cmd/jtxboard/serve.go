package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jtxboard/internal/accounts"
	"jtxboard/internal/config"
	"jtxboard/internal/janitor"
	"jtxboard/internal/server"
	"jtxboard/internal/utils"
	"jtxboard/provider"
	"jtxboard/store"
)

func newRegistry() *accounts.Registry {
	return accounts.NewRegistry(config.GetConfig())
}

func newJanitor(db *store.Database) (*janitor.Janitor, error) {
	attachmentDir, err := config.GetConfig().GetAttachmentDir()
	if err != nil {
		return nil, err
	}
	return janitor.New(db, attachmentDir), nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the content interface over HTTP",
		Long: `Starts the HTTP facade over the content contract, with the background
cleanup job scheduled alongside. Stops gracefully on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()

			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			registry := newRegistry()
			if _, err := registry.EnsureLocalCollection(db); err != nil {
				return err
			}
			if _, err := registry.CleanupOrphanedCollections(db); err != nil {
				utils.Warnf("orphaned collection cleanup failed: %v", err)
			}

			attachmentDir, err := cfg.GetAttachmentDir()
			if err != nil {
				return err
			}
			p := provider.New(db, cfg.Authority, attachmentDir)

			j := janitor.New(db, attachmentDir)
			if err := j.Start(cfg.GetCleanupSchedule()); err != nil {
				return err
			}
			defer j.Stop()

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr, _ := cmd.Flags().GetString("listen")
			if addr == "" {
				addr = cfg.GetListenAddr()
			}

			return server.Start(ctx, server.StartOpts{
				DB:        db,
				Provider:  p,
				Authority: cfg.Authority,
				Addr:      addr,
				Out:       os.Stdout,
			})
		},
	}
	cmd.Flags().String("listen", "", "listen address (overrides config)")
	return cmd
}
