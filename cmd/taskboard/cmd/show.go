package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"taskboard/api"
	"taskboard/internal/utils"
)

// newShowCmd creates the 'show' command: a one-shot fetch and render of
// the whole board to stdout.
func newShowCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [category-id]",
		Short: "Print the board",
		Long:  "Fetch the full board and print it as an indented tree. With a category id, print only that category.",
		Args:  cobra.MaximumNArgs(1),
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
			return a.track("show", "", func() error {
				snap, err := a.client.FetchAll(context.Background())
				if err != nil {
					return err
				}
				store.Load(snap)
				store.ExpandAll()

				if len(args) == 1 {
					id, err := parseID(args[0])
					if err != nil {
						return err
					}
					cat, ok := store.FindCategory(id)
					if !ok {
						return utils.ErrCategoryNotFound(id)
					}
					printBoard(stdout, []api.Category{cat})
					return nil
				}

				printBoard(stdout, store.Categories())

				svc := store.ServiceState()
				running := "stopped"
				if svc.Running {
					running = "running"
				}
				_, _ = fmt.Fprintf(stdout, "\nNotification service: %s (%d scheduled)\n", running, svc.Count)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	return cmd
}

func printBoard(w io.Writer, cats []api.Category) {
	if len(cats) == 0 {
		_, _ = fmt.Fprintln(w, "Board is empty")
		return
	}
	for _, cat := range cats {
		_, _ = fmt.Fprintf(w, "%s (#%d)\n", cat.CategoryName, cat.ID)
		for _, it := range cat.Items {
			line := fmt.Sprintf("  %s (#%d)", it.ItemName, it.ID)
			if it.ItemAt != "" {
				line += "  " + it.ItemAt
			}
			_, _ = fmt.Fprintln(w, line)
			for _, p := range it.Progresses {
				line := fmt.Sprintf("    %s %s (#%d)", p.Status.Icon(), p.ProgressName, p.ID)
				if len(p.Notifies) > 0 {
					n := p.Notifies[0]
					line += fmt.Sprintf("  notify#%d %s", n.ID, n.RunMode)
					if n.LastExecuted != nil && *n.LastExecuted != "" {
						line += "  last " + *n.LastExecuted
					}
				}
				_, _ = fmt.Fprintln(w, line)
			}
		}
	}
}
