package cli

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
	"github.com/spf13/cobra"
)

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate this device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				user, err := a.engine.Login(ctx, args[0])
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), user)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", user.Name, user.Role)
				return nil
			})
		},
	}
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and wipe local state, including unsynced work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				if n := len(a.engine.State().Queue); n > 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), warnColor.Sprintf("discarding %d unsynced change(s)", n))
				}
				if err := a.engine.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start or end a counting session",
	}
	cmd.AddCommand(newSessionStartCommand(rootOpts))
	cmd.AddCommand(newSessionEndCommand(rootOpts))
	return cmd
}

func newSessionStartCommand(rootOpts *RootOptions) *cobra.Command {
	var input dto.StartSessionInput

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session and load the shelf snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				sess, err := a.engine.StartSession(ctx, &input)
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), sess)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "session %s started with %d item(s)\n", sess.ID, len(a.engine.State().Items))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&input.Location, "location", "", "store or warehouse")
	cmd.Flags().StringVar(&input.Floor, "floor", "", "floor")
	cmd.Flags().StringVar(&input.Rack, "rack", "", "rack or shelf")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("rack")
	return cmd
}

func newSessionEndCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				if err := a.engine.EndSession(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "session ended")
				return nil
			})
		},
	}
}
