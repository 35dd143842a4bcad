package main

import (
	"os"
	"path/filepath"
	"testing"

	"slopreel/internal/testsupport"
)

func TestConfigInitWritesSampleOnce(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if info, err := os.Stat(target); err != nil || info.Size() == 0 {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateAndShowMasksSecrets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Image.APIKey = "sk-image-secret-value"
	path := writeConfig(t, cfg)

	out, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, path)

	out, _, err = runCLI(t, []string{"config", "show"}, path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireNotContains(t, out, "sk-image-secret-value")
	requireNotContains(t, out, "test-tts")
	requireContains(t, out, "sk-i********")

	out, _, err = runCLI(t, []string{"config", "show", "--reveal"}, path)
	if err != nil {
		t.Fatalf("config show --reveal: %v", err)
	}
	requireContains(t, out, "sk-image-secret-value")
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.MaxConcurrent = 50
	path := writeConfig(t, cfg)

	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected validation error for tts.max_concurrent")
	}
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"short":            "********",
		"abcdefghijklmnop": "abcd********",
	}
	for in, want := range cases {
		if got := maskSecret(in); got != want {
			t.Fatalf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
