package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSubmitCommandSendsMetadata(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"event":{"id":7}}`))
	}))
	defer srv.Close()

	stdout, _, err := runCommand(t, "--addr", srv.URL, "submit", "ABC123", "entry", "--meta", "gate=north", "--meta", "lane=2")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(stdout, `"id": 7`) {
		t.Fatalf("expected indented response, got %q", stdout)
	}
	meta, _ := payload["metadata"].(map[string]any)
	if payload["plate_number"] != "ABC123" || meta["gate"] != "north" || meta["lane"] != float64(2) {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestCommandFailsOnRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Entry for this record already happened."}`))
	}))
	defer srv.Close()

	_, stderr, err := runCommand(t, "--addr", srv.URL, "submit", "ABC123", "entry")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadRequest {
		t.Fatalf("expected status error, got %v", err)
	}
	if !strings.Contains(stderr, "already happened") {
		t.Fatalf("expected body on stderr, got %q", stderr)
	}
}

func TestQueryCommands(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.RequestURI())
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	for _, args := range [][]string{
		{"history"},
		{"active", "--limit", "3"},
		{"similar", "ABC123"},
	} {
		if _, _, err := runCommand(t, append([]string{"--addr", srv.URL}, args...)...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	want := []string{"/lpr/history", "/lpr/sessions/active?limit=3", "/lpr/similar?plate=ABC123"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, seen)
	}
}

func TestRootValidatesFlags(t *testing.T) {
	if _, _, err := runCommand(t, "--addr", "localhost:3000", "history"); err == nil {
		t.Fatalf("expected error for addr without scheme")
	}
	if _, _, err := runCommand(t, "--timeout", "0s", "history"); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"paid=true", "note=late arrival", "empty="})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if meta["paid"] != true || meta["note"] != "late arrival" || meta["empty"] != "" {
		t.Fatalf("unexpected meta %v", meta)
	}
	if _, err := parseMeta([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
	if meta, _ := parseMeta(nil); meta != nil {
		t.Fatalf("expected nil meta, got %v", meta)
	}
}
