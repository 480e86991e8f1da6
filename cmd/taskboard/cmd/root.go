// Package cmd implements the taskboard CLI.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"taskboard/api"
	"taskboard/api/rest"
	"taskboard/internal/analytics"
	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/notice"
	"taskboard/internal/session"
	"taskboard/internal/utils"

	"golang.org/x/text/language"
)

// Version is set at build time
var Version = "dev"

// Config holds CLI wiring overrides, used by tests to point the CLI at
// temporary files and fake dependencies.
type Config struct {
	ConfigPath string
	StatePath  string
	Verbose    bool

	// Client overrides the REST client when set (for testing).
	Client api.Client
	// Keyring overrides the OS keyring when set (for testing).
	Keyring session.Keyring
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewTaskboard(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		var sugg *utils.ErrorWithSuggestion
		if errors.As(err, &sugg) && sugg.GetSuggestion() != "" {
			_, _ = fmt.Fprintln(stderr, "Suggestion:", sugg.GetSuggestion())
		}
		return 1
	}
	return 0
}

// app bundles everything a command needs once wiring is done.
type app struct {
	cfg     *config.Config
	session *session.Session
	client  api.Client
	notices *notice.Queue
	tracker *analytics.Tracker
}

func (a *app) close() {
	if a.tracker != nil {
		_ = a.tracker.Close()
	}
	if a.notices != nil {
		a.notices.Close()
	}
}

// newApp loads config and session state and builds the REST client.
func newApp(cliCfg *Config) (*app, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cliCfg.Verbose || cfg.Logging.Verbose {
		utils.SetVerboseMode(true)
	}

	statePath := cliCfg.StatePath
	if statePath == "" {
		statePath = filepath.Join(config.GetDataDir(), "session.yaml")
	}
	var sessOpts []session.Option
	if cliCfg.Keyring != nil {
		sessOpts = append(sessOpts, session.WithKeyring(cliCfg.Keyring))
	}
	sess, err := session.New(statePath, sessOpts...)
	if err != nil {
		return nil, err
	}

	notices := notice.New()
	if cfg.Logging.NoticeLog != "" {
		sink := notice.NewLogSink(cfg.Logging.NoticeLog)
		notices.Subscribe(sink.Write)
	}

	client := cliCfg.Client
	if client == nil {
		client, err = rest.New(rest.Config{
			BaseURL: cfg.Server.BaseURL,
			Timeout: cfg.GetServerTimeout(),
			OnAuthFailure: func() {
				_ = sess.Clear()
			},
		}, sess, notices)
		if err != nil {
			return nil, err
		}
	}

	a := &app{
		cfg:     cfg,
		session: sess,
		client:  client,
		notices: notices,
	}

	enabled := analytics.IsEnabledFromEnv(cfg.IsAnalyticsEnabled())
	dbPath := filepath.Join(config.GetDataDir(), "analytics.db")
	if tracker, err := analytics.NewTracker(dbPath, enabled); err == nil {
		a.tracker = tracker
		if enabled {
			_, _ = tracker.Cleanup(cfg.GetAnalyticsRetentionDays())
		}
	} else {
		utils.Debugf("analytics disabled: %v", err)
	}

	return a, nil
}

// track wraps fn with operation analytics when the tracker is live.
func (a *app) track(name, entity string, fn func() error) error {
	if a.tracker == nil {
		return fn()
	}
	return a.tracker.TrackOperation(name, entity, fn)
}

// requireLogin fails early when no session is stored or the stored
// token has run out.
func (a *app) requireLogin() error {
	if a.session.Expired() {
		return utils.ErrSessionExpired()
	}
	if !a.session.LoggedIn() {
		return utils.ErrNotLoggedIn()
	}
	return nil
}

// requireAdmin fails when the signed-in user is not an administrator.
func (a *app) requireAdmin() error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if !a.session.IsAdmin() {
		return utils.ErrAdminRequired()
	}
	return nil
}

// boardLocale parses the configured BCP 47 tag, falling back to
// Traditional Chinese when the tag does not parse.
func (a *app) boardLocale() language.Tag {
	tag, err := language.Parse(a.cfg.Board.Locale)
	if err != nil {
		return language.TraditionalChinese
	}
	return tag
}

// newStore builds a board store with the configured collation locale.
func (a *app) newStore() *board.Store {
	return board.NewStore(board.WithLocale(a.boardLocale()))
}

// NewTaskboard creates the root command with injectable IO
func NewTaskboard(stdout, stderr io.Writer, cliCfg *Config) *cobra.Command {
	if cliCfg == nil {
		cliCfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "taskboard",
		Short:   "A hierarchical task board client",
		Long:    "taskboard is a client for the task board service: categories hold items, items hold progress entries, and the server pushes schedule updates over a live connection.",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				cliCfg.Verbose = true
			}
			if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
				cliCfg.ConfigPath = cfgPath
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().String("config", "", "Path to config file")

	cmd.AddCommand(newLoginCmd(stdout, stderr, cliCfg))
	cmd.AddCommand(newLogoutCmd(stdout, cliCfg))
	cmd.AddCommand(newStatusCmd(stdout, cliCfg))
	cmd.AddCommand(newBoardCmd(stdout, stderr, cliCfg))
	cmd.AddCommand(newWatchCmd(stdout, cliCfg))
	cmd.AddCommand(newShowCmd(stdout, cliCfg))
	cmd.AddCommand(newCategoryCmd(stdout, cliCfg))
	cmd.AddCommand(newItemCmd(stdout, cliCfg))
	cmd.AddCommand(newProgressCmd(stdout, cliCfg))
	cmd.AddCommand(newNotifyCmd(stdout, cliCfg))
	cmd.AddCommand(newAdminCmd(stdout, cliCfg))

	return cmd
}
