package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
	"github.com/spf13/cobra"
)

type statusView struct {
	Online        bool                         `json:"online"`
	User          *model.User                  `json:"user"`
	Session       *model.Session               `json:"session"`
	Metrics       dto.Metrics                  `json:"metrics"`
	Queue         map[model.MutationStatus]int `json:"queue"`
	Items         []model.Item                 `json:"items"`
	Variances     []model.Variance             `json:"variances"`
	Conflicts     []model.Conflict             `json:"conflicts"`
	Notifications []model.Notification         `json:"notifications"`
}

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session, counts and pending sync work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(_ context.Context, a *app) error {
				st := a.engine.State()
				view := statusView{
					Online:        st.Online,
					User:          st.User,
					Session:       st.ActiveSession,
					Metrics:       a.engine.Metrics(),
					Queue:         a.engine.QueueCounts(),
					Items:         st.Items,
					Variances:     st.Variances,
					Conflicts:     st.Conflicts,
					Notifications: st.Notifications,
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), view)
				}
				printStatus(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
}

func printStatus(w io.Writer, v statusView) {
	conn := okColor.Sprint("online")
	if !v.Online {
		conn = warnColor.Sprint("offline")
	}
	user := "not logged in"
	if v.User != nil {
		user = fmt.Sprintf("%s (%s)", v.User.Name, v.User.Role)
	}
	fmt.Fprintf(w, "%s  %s\n", conn, user)

	if v.Session == nil {
		fmt.Fprintln(w, "no active session")
	} else {
		fmt.Fprintf(w, "session %s  %s / %s / %s\n", v.Session.ID, v.Session.Location, v.Session.Floor, v.Session.Rack)
	}
	fmt.Fprintf(w, "scanned %d  verified %d  pending %d  efficiency %d%%\n",
		v.Metrics.Scanned, v.Metrics.Verified, v.Metrics.Pending, v.Metrics.Efficiency)
	fmt.Fprintf(w, "queue: pending %d  syncing %d  failed %d\n",
		v.Queue[model.MutationPending], v.Queue[model.MutationSyncing], v.Queue[model.MutationFailed])

	if len(v.Items) > 0 {
		fmt.Fprintln(w)
		for _, it := range v.Items {
			printItem(w, it)
		}
	}
	if len(v.Variances) > 0 {
		fmt.Fprintln(w, "\nvariances:")
		for _, vr := range v.Variances {
			fmt.Fprintf(w, "  %s %-12s system=%g physical=%g diff=%+g %s\n",
				vr.ID, vr.SKU, vr.SystemCount, vr.PhysicalCount, vr.Variance, severityLabel(vr.Severity))
		}
	}
	if len(v.Conflicts) > 0 {
		fmt.Fprintln(w, "\nconflicts:")
		for _, c := range v.Conflicts {
			fmt.Fprintf(w, "  %s %-12s local=%g (v%d) server=%g (v%d, %s)\n",
				c.ID, c.SKU, c.LocalCount, c.VersionMismatch.Local, c.ServerCount, c.VersionMismatch.Remote, c.ServerSource)
		}
	}
}
