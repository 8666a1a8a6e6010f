package cli

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/spf13/cobra"
)

func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued changes once and report what is left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				if !a.engine.Online() {
					return fmt.Errorf("cannot sync while offline")
				}
				attempts := a.processor().Drain(ctx)
				st := a.engine.State()
				left, blocked := remaining(st.Queue)

				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), map[string]int{
						"attempted": attempts,
						"remaining": left,
						"blocked":   blocked,
						"conflicts": len(st.Conflicts),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, remaining %d, blocked %d\n", attempts, left, blocked)
				printAlert(cmd.OutOrStdout(), st.Alert)
				return nil
			})
		},
	}
}

// remaining splits unsynced mutations into retryable and awaiting resolution.
func remaining(queue []model.Mutation) (left, blocked int) {
	for _, m := range queue {
		if m.Blocked {
			blocked++
			continue
		}
		left++
	}
	return left, blocked
}
