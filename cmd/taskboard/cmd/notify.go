package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"taskboard/api"
)

func parseRunMode(s string) (api.RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "once":
		return api.RunOnce, nil
	case "1", "daily":
		return api.RunDaily, nil
	case "2", "weekly":
		return api.RunWeekly, nil
	}
	return 0, fmt.Errorf("unknown run mode: %q (once, daily, weekly)", s)
}

// notifyFromFlags builds the notify payload shared by set and update.
func notifyFromFlags(cmd *cobra.Command) (api.Notify, error) {
	var n api.Notify

	mode, _ := cmd.Flags().GetString("mode")
	runMode, err := parseRunMode(mode)
	if err != nil {
		return n, err
	}
	n.RunMode = runMode

	n.StartAt, _ = cmd.Flags().GetString("start")
	n.StopAt, _ = cmd.Flags().GetString("stop")
	n.RunCode, _ = cmd.Flags().GetInt("code")

	if timeAt, _ := cmd.Flags().GetString("time"); timeAt != "" {
		n.TimeAt = &timeAt
	}
	if weekAt, _ := cmd.Flags().GetString("week"); weekAt != "" {
		w, err := strconv.Atoi(weekAt)
		if err != nil {
			return n, fmt.Errorf("invalid week digits: %q", weekAt)
		}
		n.WeekAt = &w
	}

	if n.RunMode == api.RunWeekly && n.WeekAt == nil {
		return n, fmt.Errorf("weekly notifications need --week (e.g. 135 for Mon, Wed and Fri)")
	}
	return n, nil
}

func addNotifyFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "once", "Run mode: once, daily, weekly")
	cmd.Flags().String("start", "", "Schedule window start (YYYY-MM-DD)")
	cmd.Flags().String("stop", "", "Schedule window end (YYYY-MM-DD)")
	cmd.Flags().String("time", "", "Time of day (HH:MM)")
	cmd.Flags().String("week", "", "Weekday digits for weekly mode (1=Mon .. 7=Sun)")
	cmd.Flags().Int("code", 0, "Notification channel code")
}

// newNotifyCmd creates the 'notify' command group
func newNotifyCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Manage scheduled notifications",
	}

	set := &cobra.Command{
		Use:   "set [progress-id]",
		Short: "Attach a notification schedule to a progress entry",
		Long:  "Attach a notification schedule. A progress entry carries at most one active notification; setting a new one replaces it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			progressID, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := notifyFromFlags(cmd)
			if err != nil {
				return err
			}
			n.ProgressID = progressID

			return a.track("set", "notify", func() error {
				created, err := a.client.CreateNotify(context.Background(), &n)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Notification #%d set: %s", created.ID, created.RunMode)
				if created.WeekAt != nil {
					_, _ = fmt.Fprintf(stdout, " on %s", api.WeekdayText(*created.WeekAt))
				}
				if created.TimeAt != nil {
					_, _ = fmt.Fprintf(stdout, " at %s", *created.TimeAt)
				}
				_, _ = fmt.Fprintln(stdout)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addNotifyFlags(set)

	update := &cobra.Command{
		Use:   "update [notify-id]",
		Short: "Change an existing notification schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			n, err := notifyFromFlags(cmd)
			if err != nil {
				return err
			}
			n.ID = id

			return a.track("update", "notify", func() error {
				updated, err := a.client.UpdateNotify(context.Background(), &n)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Notification #%d updated\n", updated.ID)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addNotifyFlags(update)

	del := &cobra.Command{
		Use:   "delete [notify-id]",
		Short: "Remove a notification schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.track("delete", "notify", func() error {
				if err := a.client.DeleteNotify(context.Background(), id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Notification #%d removed\n", id)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	test := &cobra.Command{
		Use:   "test",
		Short: "Send a test push to the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			return a.track("test", "notify", func() error {
				if err := a.client.SendTestPush(context.Background(), a.session.UserID()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(stdout, "Test push sent")
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(set, update, del, test)
	return cmd
}
