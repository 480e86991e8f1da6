package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"taskboard/api"
)

// newAdminCmd creates the 'admin' command group for the server-side
// notification scheduler. Every subcommand requires an admin session.
func newAdminCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer the server-side notification service",
	}

	service := &cobra.Command{
		Use:   "service [start|stop]",
		Short: "Start or stop the notification scheduler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireAdmin(); err != nil {
				return err
			}

			var enable bool
			switch args[0] {
			case "start":
				enable = true
			case "stop":
				enable = false
			default:
				return fmt.Errorf("unknown action: %q (start or stop)", args[0])
			}

			return a.track("service", "admin", func() error {
				res, err := a.client.ControlNotifyService(context.Background(), enable)
				if err != nil {
					return err
				}
				state := "stopped"
				if res.Running {
					state = "running"
				}
				_, _ = fmt.Fprintf(stdout, "Notification service %s", state)
				if res.Message != "" {
					_, _ = fmt.Fprintf(stdout, ": %s", res.Message)
				}
				_, _ = fmt.Fprintln(stdout)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	schedules := &cobra.Command{
		Use:   "schedules",
		Short: "List the scheduler's notification entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireAdmin(); err != nil {
				return err
			}

			refresh, _ := cmd.Flags().GetBool("refresh")
			return a.track("schedules", "admin", func() error {
				var list []api.NotifySchedule
				var err error
				if refresh {
					list, err = a.client.RefreshNotifyList(context.Background())
				} else {
					list, err = a.client.NotifyList(context.Background())
				}
				if err != nil {
					return err
				}

				if len(list) == 0 {
					_, _ = fmt.Fprintln(stdout, "No notifications scheduled")
					return nil
				}
				for _, s := range list {
					line := fmt.Sprintf("notify#%d user#%d progress#%d", s.NotifyID, s.UserID, s.ProgressID)
					if s.NextRun != "" {
						line += "  next " + s.NextRun
					}
					_, _ = fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	schedules.Flags().Bool("refresh", false, "Rebuild the schedule list from the database before listing")

	cmd.AddCommand(service, schedules)
	return cmd
}
