package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"taskboard/api"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %q", s)
	}
	return id, nil
}

// newCategoryCmd creates the 'category' command group
func newCategoryCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a category",
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

			content, _ := cmd.Flags().GetString("content")
			return a.track("add", "category", func() error {
				created, err := a.client.CreateCategory(context.Background(), &api.Category{
					CategoryName: args[0],
					Content:      content,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Created category %q (#%d)\n", created.CategoryName, created.ID)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	add.Flags().String("content", "", "Category description")

	update := &cobra.Command{
		Use:   "update [id] [name]",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
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
			content, _ := cmd.Flags().GetString("content")
			return a.track("update", "category", func() error {
				updated, err := a.client.UpdateCategory(context.Background(), &api.Category{
					ID:           id,
					CategoryName: args[1],
					Content:      content,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Updated category #%d\n", updated.ID)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	update.Flags().String("content", "", "Category description")

	del := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a category and everything in it",
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
			return a.track("delete", "category", func() error {
				if err := a.client.DeleteCategory(context.Background(), id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Deleted category #%d\n", id)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(add, update, del)
	return cmd
}

// newItemCmd creates the 'item' command group
func newItemCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage items",
	}

	add := &cobra.Command{
		Use:   "add [category-id] [name]",
		Short: "Create an item in a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			categoryID, err := parseID(args[0])
			if err != nil {
				return err
			}
			content, _ := cmd.Flags().GetString("content")
			itemAt, _ := cmd.Flags().GetString("at")
			return a.track("add", "item", func() error {
				created, err := a.client.CreateItem(context.Background(), &api.Item{
					CategoryID: categoryID,
					ItemName:   args[1],
					Content:    content,
					ItemAt:     itemAt,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Created item %q (#%d)\n", created.ItemName, created.ID)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	add.Flags().String("content", "", "Item description")
	add.Flags().String("at", "", "Item date (YYYY-MM-DD)")

	update := &cobra.Command{
		Use:   "update [id] [name]",
		Short: "Rename an item",
		Args:  cobra.ExactArgs(2),
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
			content, _ := cmd.Flags().GetString("content")
			itemAt, _ := cmd.Flags().GetString("at")
			return a.track("update", "item", func() error {
				updated, err := a.client.UpdateItem(context.Background(), &api.Item{
					ID:       id,
					ItemName: args[1],
					Content:  content,
					ItemAt:   itemAt,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Updated item #%d\n", updated.ID)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	update.Flags().String("content", "", "Item description")
	update.Flags().String("at", "", "Item date (YYYY-MM-DD)")

	del := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an item and its progress entries",
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
			return a.track("delete", "item", func() error {
				if err := a.client.DeleteItem(context.Background(), id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Deleted item #%d\n", id)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(add, update, del)
	return cmd
}

// newProgressCmd creates the 'progress' command group
func newProgressCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Manage progress entries",
	}

	add := &cobra.Command{
		Use:   "add [item-id] [name]",
		Short: "Create a progress entry under an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			itemID, err := parseID(args[0])
			if err != nil {
				return err
			}
			content, _ := cmd.Flags().GetString("content")
			progressAt, _ := cmd.Flags().GetString("at")
			return a.track("add", "progress", func() error {
				created, err := a.client.CreateProgress(context.Background(), &api.Progress{
					ItemID:       itemID,
					ProgressName: args[1],
					Content:      content,
					ProgressAt:   progressAt,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Created progress %q (#%d)\n", created.ProgressName, created.ID)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	add.Flags().String("content", "", "Progress description")
	add.Flags().String("at", "", "Progress date (YYYY-MM-DD)")

	update := &cobra.Command{
		Use:   "update [id] [name]",
		Short: "Rename a progress entry",
		Args:  cobra.ExactArgs(2),
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
			content, _ := cmd.Flags().GetString("content")
			return a.track("update", "progress", func() error {
				updated, err := a.client.UpdateProgress(context.Background(), &api.Progress{
					ID:           id,
					ProgressName: args[1],
					Content:      content,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Updated progress #%d\n", updated.ID)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	update.Flags().String("content", "", "Progress description")

	status := &cobra.Command{
		Use:   "status [id] [normal|completed|disabled]",
		Short: "Set the status of a progress entry",
		Args:  cobra.ExactArgs(2),
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
			st, ok := api.ParseProgressStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status: %q", args[1])
			}
			return a.track("status", "progress", func() error {
				if err := a.client.SetProgressStatus(context.Background(), id, st); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Progress #%d is now %s\n", id, st)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	details := &cobra.Command{
		Use:   "details [category-id] [item-id] [progress-id]",
		Short: "Show the denormalized progress path",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cliCfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			categoryID, err := parseID(args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID(args[1])
			if err != nil {
				return err
			}
			progressID, err := parseID(args[2])
			if err != nil {
				return err
			}
			return a.track("details", "progress", func() error {
				d, err := a.client.ProgressDetails(context.Background(), categoryID, itemID, progressID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "%s / %s / %s\n", d.CategoryName, d.ItemName, d.ProgressName)
				if d.Content != "" {
					_, _ = fmt.Fprintln(stdout, d.Content)
				}
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	del := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a progress entry",
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
			return a.track("delete", "progress", func() error {
				if err := a.client.DeleteProgress(context.Background(), id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Deleted progress #%d\n", id)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(add, update, status, details, del)
	return cmd
}
