package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func load(t *testing.T, args ...string) (*Config, []string, error) {
	t.Helper()
	return Load(FlagSet("knolboard"), args)
}

func TestDefaults(t *testing.T) {
	cfg, rest, err := load(t, "decks")
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.APIURL != "http://localhost:8000/api/v1" {
		t.Errorf("Expected default api url, but got %q", cfg.APIURL)
	}
	if cfg.Timeout != 15*time.Second || cfg.WindowDays != 30 || cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if !reflect.DeepEqual(rest, []string{"decks"}) {
		t.Errorf("Expected remaining args [decks], but got %v", rest)
	}
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "knolboard.yaml")
	yamlContent := strings.Join([]string{
		"api-url: https://file.example.com/api/v1",
		"window-days: 14",
		"timeout: 5s",
		"log-format: json",
	}, "\n")
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("KNOLBOARD_API_URL", "https://env.example.com/api/v1")
	t.Setenv("KNOLBOARD_RATE_LIMIT", "2.5")

	cfg, rest, err := load(t, "--config", yamlPath, "--window-days", "7", "study", "--deck", "3")
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if cfg.APIURL != "https://env.example.com/api/v1" {
		t.Errorf("Expected env to override the file, but got %q", cfg.APIURL)
	}
	if cfg.WindowDays != 7 {
		t.Errorf("Expected the flag to override the file, but got %d", cfg.WindowDays)
	}
	if cfg.Timeout != 5*time.Second || cfg.LogFormat != "json" {
		t.Errorf("Expected file values for unset keys, but got %+v", cfg)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("Expected rate limit from env, but got %v", cfg.RateLimit)
	}
	if cfg.DB != "knolboard.db" {
		t.Errorf("Expected the default db, but got %q", cfg.DB)
	}
	if !reflect.DeepEqual(rest, []string{"study", "--deck", "3"}) {
		t.Errorf("Expected subcommand args untouched, but got %v", rest)
	}
}

func TestEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envPath, []byte("KNOLBOARD_REPOS_DIR=/srv/knolboard/repos\n"), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("KNOLBOARD_REPOS_DIR") })

	cfg, _, err := load(t, "--env-file", envPath)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.ReposDir != "/srv/knolboard/repos" {
		t.Errorf("Expected repos dir from the env file, but got %q", cfg.ReposDir)
	}
}

func TestMissingEnvFileIsIgnored(t *testing.T) {
	if _, _, err := load(t, "--env-file", filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Expected a missing env file to be ignored, but got %v", err)
	}
}

func TestInvalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"bad url", []string{"--api-url", "not a url"}},
		{"bad log level", []string{"--log-level", "loud"}},
		{"zero window", []string{"--window-days", "0"}},
		{"negative rate", []string{"--rate-limit", "-1"}},
		{"unknown zone", []string{"--timezone", "Mars/Olympus"}},
		{"unknown flag", []string{"--colour", "red"}},
		{"missing config file", []string{"--config", "/nonexistent/knolboard.yaml"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := load(t, tc.args...); err == nil {
				t.Errorf("Expected Load(%v) to fail", tc.args)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Europe/Dublin"}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location() returned an unexpected error: %v", err)
	}
	if loc.String() != "Europe/Dublin" {
		t.Errorf("Expected Europe/Dublin, but got %s", loc)
	}
	cfg.Timezone = ""
	if loc, _ := cfg.Location(); loc != time.Local {
		t.Errorf("Expected the local zone, but got %s", loc)
	}
}
