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
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
}

func TestConfigThreshold(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "threshold"}, env.configPath)
	if err != nil {
		t.Fatalf("config threshold: %v", err)
	}
	requireContains(t, out, "Paid threshold: 10000 views")

	if _, _, err := runCLI(t, []string{"config", "threshold", "25000"}, env.configPath); err != nil {
		t.Fatalf("set threshold: %v", err)
	}
	out, _, err = runCLI(t, []string{"config", "threshold"}, env.configPath)
	if err != nil {
		t.Fatalf("config threshold: %v", err)
	}
	requireContains(t, out, "Paid threshold: 25000 views")

	_, _, err = runCLI(t, []string{"config", "threshold", "--", "-5"}, env.configPath)
	if err == nil {
		t.Fatal("expected negative threshold to fail")
	}
	requireContains(t, err.Error(), "validation:")
}
