package main

import (
	"testing"

	"kfctl-e2e/cmd"
)

func TestVersion(t *testing.T) {
	// Test default version
	if version != "dev" {
		t.Errorf("Expected default version to be 'dev', got %s", version)
	}

	cmd.SetVersion(version)
	if cmd.GetVersion() != "dev" {
		t.Errorf("Expected command version to be 'dev', got %s", cmd.GetVersion())
	}
}
