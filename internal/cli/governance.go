package cli

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/spf13/cobra"
)

func NewApproveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <variance-id>",
		Short: "Approve a variance (supervisor)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				if err := a.engine.ApproveVariance(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "variance %s approved\n", args[0])
				return nil
			})
		},
	}
}

func NewRecountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recount <sku> <assignee>",
		Short: "Assign a recount of an item (supervisor)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				if err := a.engine.AssignRecount(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recount of %s assigned to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "resolve <conflict-id> <local|server>",
		Short:     "Resolve a version conflict (supervisor)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(model.ResolutionLocal), string(model.ResolutionServer)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				if err := a.engine.ResolveConflict(ctx, args[0], model.Resolution(args[1])); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "conflict %s resolved (%s)\n", args[0], args[1])
				return nil
			})
		},
	}
}

func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	var markRead []string

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List unread priority tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(_ context.Context, a *app) error {
				for _, id := range markRead {
					a.engine.MarkNotificationRead(id)
				}
				tasks := a.engine.PriorityTasks()
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), tasks)
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no priority tasks")
					return nil
				}
				for _, n := range tasks {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", n.ID, recountColor.Sprint(n.Title), n.Message)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&markRead, "read", nil, "notification ids to mark as read")
	return cmd
}
