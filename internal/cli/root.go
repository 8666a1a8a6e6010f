package cli

import (
	"fmt"
	"slices"

	"github.com/fekuna/omnipos-stock-verifier/config"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags and test seams for all commands.
type RootOptions struct {
	ConfigFile string
	Offline    bool
	Format     string // "json" | "text"

	// Remote replaces the HTTP client when set.
	Remote stocktake.RemoteService
	// Config replaces environment loading when set.
	Config *config.Config
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts == nil {
		opts = &RootOptions{}
	}

	cmd := &cobra.Command{
		Use:   "stockagent",
		Short: "Offline-tolerant stock verification agent",
		Long: `stockagent records physical stock counts on the device, queues every write
while the network is unreliable and replays the queue against the inventory
service with optimistic version checks.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config overlay")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "treat the device as offline")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRefreshCommand(opts))
	cmd.AddCommand(NewApproveCommand(opts))
	cmd.AddCommand(NewRecountCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewNotificationsCommand(opts))

	return cmd
}
