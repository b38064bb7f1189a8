package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/internal/config"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
	if GetVersion() != testVersion {
		t.Errorf("Expected GetVersion to return %s, got %s", testVersion, GetVersion())
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "kfctl-e2e" {
		t.Errorf("Expected Use to be 'kfctl-e2e', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "kfctl-e2e version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	if err := testCmd.Execute(); err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	expected := "kfctl-e2e version 1.0.0\n"
	if buf.String() != expected {
		t.Errorf("Expected version output %q, got %q", expected, buf.String())
	}
}

func TestSubcommands(t *testing.T) {
	foundCommands := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range []string{"version", "build", "describe", "submit", "check"} {
		if !foundCommands[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}

	foundChecks := make(map[string]bool)
	for _, cmd := range checkCmd.Commands() {
		foundChecks[cmd.Name()] = true
	}
	for _, expected := range []string{"ready", "endpoint", "kfam", "gcp-access", "delete-wrong-cluster", "second-apply"} {
		if !foundChecks[expected] {
			t.Errorf("Expected check %s to be registered", expected)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitCodeSuccess},
		{"generic", errors.New("boom"), ExitCodeError},
		{"validation", api.NewValidationError("appName", "x", "too long"), ExitCodeValidation},
		{"configuration", config.NewConfigurationError("/c.yaml", "c.yaml", "parse", "bad"), ExitCodeValidation},
		{"reference", fmt.Errorf("insert: %w", api.NewReferenceError("dependency", "missing", "e2e")), ExitCodeReference},
		{"timeout", &api.TimeoutError{Resource: "deployment", Name: "ui"}, ExitCodeTimeout},
		{"joined timeout", errors.Join(errors.New("a"), &api.TimeoutError{Resource: "deployment", Name: "ui"}), ExitCodeTimeout},
		{"cluster state", &api.UnexpectedClusterStateError{Operation: "delete"}, ExitCodeUnexpectedClusterState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRootCommandHelp(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--help"})
	defer rootCmd.SetOut(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Error executing help command: %v", err)
	}

	if !strings.Contains(buf.String(), "kfctl-e2e builds the Argo workflow") {
		t.Errorf("Help output should contain the long description. Got: %q", buf.String())
	}
}
