package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/internal/viewstate"
)

// prefsPath is swapped in tests.
var prefsPath = model.DefaultPrefsPath

// NewConfigCommand creates the config command group.
func NewConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file and saved preferences",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCommand(opts))
	cmd.AddCommand(newResetThemeCommand())
	return cmd
}

func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	var (
		workspace string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, pass --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			// A missing file yields the defaults; with --force an existing
			// file is rewritten with its values kept.
			cfg, err := model.LoadConfig(path)
			if err != nil {
				return err
			}
			if workspace != "" {
				cfg.API.WorkspaceID = workspace
			}
			if err := model.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id to store")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newResetThemeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-theme",
		Short: "Forget the saved theme so it follows the system again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.NewSQLiteStore(prefsPath())
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := db.DeletePreference(ctx, viewstate.ThemeKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Theme reset.")
			return nil
		},
	}
}
