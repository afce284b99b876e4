package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coopco/wishbot/internal/config"
	"github.com/coopco/wishbot/internal/docstore"
	"github.com/coopco/wishbot/internal/httpapi"
	"github.com/coopco/wishbot/internal/store"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "wishbot",
		Short:         "Scheduled wish delivery bot",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config.json (defaults and environment only when empty)")

	root.AddCommand(
		newServeCmd(&cfgPath),
		newBackupCmd(&cfgPath),
		newRestoreCmd(&cfgPath),
		newTokenCmd(&cfgPath),
	)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured backend and loads every collection.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, docstore.Store, error) {
	docs, err := docstore.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	st := store.New(docs, store.Options{Owner: cfg.Owner()})
	if err := st.Load(ctx); err != nil {
		docs.Close()
		return nil, nil, fmt.Errorf("failed to load data: %w", err)
	}
	return st, docs, nil
}

func newBackupCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a backup of every collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			st, docs, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer docs.Close()

			name, err := st.Backup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func newRestoreCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup file>",
		Short: "Replace every collection from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			st, docs, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer docs.Close()

			if err := st.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			c := st.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s: %d wishes, %d archived, %d group wishes, %d groups\n",
				args[0], c.Wishes, c.Archived, c.GroupWishes, c.Groups)
			return nil
		},
	}
}

func newTokenCmd(cfgPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return fmt.Errorf("admin.jwt_secret is not set")
			}
			tok, err := httpapi.NewTokens(cfg.Admin.JWTSecret).Sign(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject recorded in the activity log")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
