package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Java binary:")
	requireContains(t, out, "Log level:")
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	if err := os.WriteFile(target, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err == nil {
		t.Fatal("expected refusal without --overwrite")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.configPath); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}
