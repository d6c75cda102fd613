package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Meta []string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <plate> <entry|exit>",
		Short: "Submit a plate sighting",
		Long: `Submit a plate sighting to lpr-service.

Metadata values are parsed as JSON when possible and sent as strings otherwise.

Example:
  lprctl submit ABC123 entry --meta gate=north --meta lane=2`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMeta(opts.Meta)
			if err != nil {
				return err
			}
			status, body, err := opts.client().SubmitEvent(cmd.Context(), args[0], args[1], metadata)
			return printResponse(cmd, status, body, err)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Meta, "meta", nil, "metadata entry as key=value (repeatable)")

	return cmd
}

func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --meta %q: want key=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		out[key] = value
	}
	return out, nil
}
