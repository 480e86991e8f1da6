package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"taskboard/internal/board"
	"taskboard/internal/notice"
	"taskboard/internal/shutdown"
	"taskboard/internal/stream"
	"taskboard/internal/tui"
)

// newBoardCmd creates the 'board' command: the interactive TUI with the
// live push connection.
func newBoardCmd(stdout, stderr io.Writer, cliCfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive board",
		Long:  "Open the terminal board with a live push connection. Updates from the server appear as they happen.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireLogin(); err != nil {
				return err
			}

			store := a.newStore()
			ops := board.NewOps(store, a.client, a.notices)

			ctx := context.Background()
			snap, err := a.client.FetchAll(ctx)
			if err != nil {
				return err
			}
			store.Load(snap)

			sup := a.newSupervisor(store)
			sup.Connect()

			headless, _ := cmd.Flags().GetBool("headless")
			if headless {
				return a.runHeadless(stdout, sup)
			}

			model := tui.New(store, ops, a.notices, func() string {
				return sup.State().String()
			})
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(stdout))
			_, err = p.Run()
			sup.Disconnect()
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Bool("headless", false, "Keep the push connection open without the TUI, logging notices")
	return cmd
}

// newWatchCmd creates the 'watch' command: the push connection without
// the TUI, logging every notice to stdout until interrupted.
func newWatchCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow push updates without opening the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireLogin(); err != nil {
				return err
			}

			store := a.newStore()
			snap, err := a.client.FetchAll(context.Background())
			if err != nil {
				return err
			}
			store.Load(snap)

			sup := a.newSupervisor(store)
			sup.Connect()
			return a.runHeadless(stdout, sup)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newSupervisor wires the push connection to the board store.
func (a *app) newSupervisor(store *board.Store) *stream.Supervisor {
	router := stream.NewRouter(store, a.notices)
	cfg := stream.Config{
		BaseURL:                a.cfg.Server.BaseURL,
		MaxRetries:             a.cfg.GetMaxRetries(),
		BaseRetryDelay:         a.cfg.GetBaseRetryDelay(),
		ErrorCooldown:          a.cfg.GetErrorCooldown(),
		TokenRefreshInterval:   a.cfg.GetTokenRefreshInterval(),
		TokenRefreshMinSpacing: a.cfg.GetTokenRefreshMinSpacing(),
		HealthCheckInterval:    a.cfg.GetHealthCheckInterval(),
	}
	if a.tracker != nil {
		cfg.Track = a.tracker.RecordStream
	}
	return stream.NewSupervisor(cfg, a.client, a.session, router, a.notices)
}

// runHeadless keeps the process alive until a signal arrives, printing
// notices as they are shown.
func (a *app) runHeadless(stdout io.Writer, sup *stream.Supervisor) error {
	a.notices.Subscribe(func(n notice.Notice) {
		_, _ = fmt.Fprintf(stdout, "[%s] %s\n", n.Severity, n.Message)
	})

	mgr := shutdown.NewManager()
	mgr.HandleSignals()
	mgr.RegisterCleanup("stream", func(ctx context.Context) error {
		sup.Disconnect()
		return nil
	})

	// Stop waiting once the supervisor gives up, so the command exits
	// non-zero instead of sitting on a dead connection.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-mgr.Context().Done():
				return
			case <-ticker.C:
				if sup.State() == stream.StateFailed {
					mgr.Shutdown()
					return
				}
			}
		}
	}()

	_, _ = fmt.Fprintln(stdout, "Watching for push updates, Ctrl+C to stop")
	if err := mgr.Wait(10 * time.Second); err != nil {
		return err
	}
	return sup.Err()
}
