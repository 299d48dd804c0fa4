package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/app"
	"github.com/nhle/taskboard/internal/cache"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/logging"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/mutation"
	"github.com/nhle/taskboard/internal/source/asana"
	"github.com/nhle/taskboard/internal/store"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/viewstate"
)

type rootOptions struct {
	configPath string
	workspace  string
	logLevel   string
}

// NewRootCommand creates the root command. Run without a subcommand it
// opens the board.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "taskboard",
		Short: "Kanban board for your Asana projects",
		Long: `Taskboard shows the tasks of an Asana workspace as a kanban board.
Projects are listed in the sidebar and each project's tasks are split into
Backlog, In Progress, In Review and Completed columns.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", model.DefaultConfigPath(), "path to the config file")
	f := cmd.Flags()
	f.StringVar(&opts.workspace, "workspace", "", "workspace id, overrides api.workspace_id")
	f.StringVar(&opts.logLevel, "log-level", "", "log level, overrides log.level")

	cmd.AddCommand(NewAuthCommand())
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *rootOptions) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.workspace != "" {
		cfg.API.WorkspaceID = opts.workspace
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, model.ErrNoWorkspace) {
			return nil, fmt.Errorf("%w: set it in %s or pass --workspace", err, opts.configPath)
		}
		return nil, err
	}
	return cfg, nil
}

func runBoard(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level})
	if err != nil {
		return err
	}
	defer logger.Close()

	// The level follows the file unless the flag pinned it.
	model.WatchConfig(opts.configPath,
		func(c *model.AppConfig) {
			if opts.logLevel != "" {
				return
			}
			if err := logger.SetLevel(c.Log.Level); err != nil {
				logger.Warn("ignoring config change", "error", err)
				return
			}
			logger.Info("log level changed", "level", c.Log.Level)
		},
		func(err error) { logger.Warn("reading config", "error", err) },
	)

	token, err := credential.Token()
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.API.TimeoutSec) * time.Second
	src := asana.NewAdapter(cfg.API.BaseURL, token, timeout, cfg.API.MaxRetries, logger.Logger)
	ws := cfg.API.WorkspaceID

	c := cache.New(logger.With("component", "cache"))
	coord := mutation.New(src, c, ws, logger.With("component", "mutation"))
	refresher := appsync.New(src, c, ws, timeout)

	// The board works without saved preferences; only the theme choice is
	// lost.
	var prefs viewstate.PreferenceStore
	db, err := store.NewSQLiteStore(model.DefaultPrefsPath())
	if err != nil {
		logger.Warn("opening preference store", "error", err)
	} else {
		defer db.Close()
		prefs = db
		if v, err := db.SchemaVersion(ctx); err == nil {
			logger.Debug("preference store ready", "schema_version", v)
		}
	}

	// The terminal is queried once, before the program owns it. Later
	// changes come from the desktop setting.
	term := termenv.NewOutput(os.Stdout, termenv.WithColorCache(true))
	vs := viewstate.New(prefs, term.HasDarkBackground, func(t viewstate.Theme) {
		theme.Apply(t.Dark())
	}, logger.With("component", "viewstate"))
	vs.LoadTheme(ctx)

	logger.Info("starting", "version", Version, "workspace", ws)

	m := app.New(app.Deps{
		Cache:        c,
		Coordinator:  coord,
		Refresher:    refresher,
		View:         vs,
		Logger:       logger.Logger,
		CompactWidth: cfg.Display.CompactWidth,
		SchemePoll:   theme.SystemScheme,
		ThemePoll:    time.Duration(cfg.Display.ThemePollSec) * time.Second,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
