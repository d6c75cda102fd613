package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lprwatch/backend/services/lpr-service/internal/clients"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Addr    string
	Timeout time.Duration
}

// NewRootCommand creates the root command for lprctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lprctl",
		Short: "lprctl talks to lpr-service",
		Long:  "Submit plate sightings and inspect sessions recorded by lpr-service.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !strings.HasPrefix(opts.Addr, "http://") && !strings.HasPrefix(opts.Addr, "https://") {
				return fmt.Errorf("invalid addr %q: must start with http:// or https://", opts.Addr)
			}
			if opts.Timeout <= 0 {
				return fmt.Errorf("invalid timeout %s: must be positive", opts.Timeout)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "http://localhost:3000", "lpr-service base URL")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewActiveCommand(opts))
	cmd.AddCommand(NewSimilarCommand(opts))

	return cmd
}

func (o *RootOptions) client() *clients.LPRClient {
	return clients.NewLPRClient(o.Addr, clients.NewDefaultHTTPClient(o.Timeout))
}
