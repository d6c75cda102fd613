package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// StatusError reports a non-2xx response from lpr-service.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lpr-service responded %d %s", e.Status, http.StatusText(e.Status))
}

// printResponse writes body as indented JSON and fails on non-2xx status.
func printResponse(cmd *cobra.Command, status int, body []byte, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if status < 200 || status > 299 {
		out = cmd.ErrOrStderr()
	}

	var buf bytes.Buffer
	if len(body) > 0 && json.Indent(&buf, body, "", "  ") == nil {
		buf.WriteByte('\n')
		_, _ = out.Write(buf.Bytes())
	} else if len(body) > 0 {
		fmt.Fprintln(out, string(body))
	}

	if status < 200 || status > 299 {
		return &StatusError{Status: status}
	}
	return nil
}
