package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCmd_Registered(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "init" {
			found = true
			break
		}
	}
	if !found {
		t.Error("init command not registered with rootCmd")
	}
}

func TestInitCmd_WritesDenyByDefaultPolicy(t *testing.T) {
	dir := t.TempDir()
	initPolicyPath = filepath.Join(dir, "policy.yaml")
	defer func() { initPolicyPath = "./policy.yaml" }()

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, err := os.ReadFile(initPolicyPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != defaultPolicyTemplate {
		t.Errorf("wrote %q, want %q", data, defaultPolicyTemplate)
	}
}

func TestInitCmd_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	initPolicyPath = filepath.Join(dir, "policy.yaml")
	defer func() { initPolicyPath = "./policy.yaml" }()

	if err := os.WriteFile(initPolicyPath, []byte("existing"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := runInit(initCmd, nil); err == nil {
		t.Error("runInit should refuse to overwrite an existing policy file")
	}
}
