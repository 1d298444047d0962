package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

func TestExecuteHelp(t *testing.T) {
	for _, args := range [][]string{nil, {"help"}, {"-h"}, {"--help"}} {
		out := captureStdout(t)
		if err := execute(args); err != nil {
			t.Fatalf("execute(%q) = %v", args, err)
		}
		for _, name := range []string{"run", "validate"} {
			if !strings.Contains(out.String(), name) {
				t.Errorf("execute(%q) help is missing %q", args, name)
			}
		}
	}
}

func TestExecuteVersion(t *testing.T) {
	out := captureStdout(t)
	if err := execute([]string{"--version"}); err != nil {
		t.Fatal(err)
	}
	want := "surfacehost version " + Version
	if !strings.HasPrefix(out.String(), want) {
		t.Errorf("version output = %q, want prefix %q", out.String(), want)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	captureStdout(t)
	if err := execute([]string{"paint"}); err == nil {
		t.Fatal("execute(paint) = nil, want error")
	}
}

func TestExecuteSubcommandHelp(t *testing.T) {
	out := captureStdout(t)
	if err := execute([]string{"validate", "--help"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "surfacehost validate") {
		t.Errorf("help output = %q", out.String())
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "text", false},
		{"debug", "json", false},
		{"WARN", "text", false},
		{"loud", "text", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger, err := newLogger(&buf, tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("newLogger(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		logger.Error("probe")
		if !strings.Contains(buf.String(), "probe") {
			t.Errorf("newLogger(%q, %q) wrote %q", tt.level, tt.format, buf.String())
		}
	}
}
