package cli

import (
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history",
		Short:         "List recorded events, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := opts.client().History(cmd.Context())
			return printResponse(cmd, status, body, err)
		},
	}
}

// NewActiveCommand creates the active command.
func NewActiveCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "active",
		Short:         "List open sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := opts.client().ActiveSessions(cmd.Context(), limit)
			return printResponse(cmd, status, body, err)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum sessions to return (0 uses the server default)")

	return cmd
}

// NewSimilarCommand creates the similar command.
func NewSimilarCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "similar <plate>",
		Short:         "Find previously seen plates resembling plate",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := opts.client().SimilarPlates(cmd.Context(), args[0])
			return printResponse(cmd, status, body, err)
		},
	}
}
