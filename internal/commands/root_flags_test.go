package foundrychat

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwiater/foundrychat/internal/logging"
	"github.com/spf13/viper"
)

var globalFlags = []string{"debug", "stream", "markdown", "baseUrl", "serviceBinary", "timeout", "logFile", "tracesEndpoint", "output"}

func resetFlag(cmdFlag string) {
	flag := rootCmd.PersistentFlags().Lookup(cmdFlag)
	if flag == nil {
		return
	}
	_ = flag.Value.Set(flag.DefValue)
	flag.Changed = false
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// useConfig points the root command at a fresh config file and clears
// flags left over from earlier runs.
func useConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := writeTempConfig(t, content)

	prevCfgFile := cfgFile
	cfgFile = configPath
	viper.SetConfigFile(configPath)
	descriptorCache.Clear()
	t.Cleanup(func() {
		cfgFile = prevCfgFile
		viper.SetConfigFile(prevCfgFile)
		currentConfig = nil
	})
	t.Cleanup(func() { _ = logging.Close() })

	for _, name := range globalFlags {
		resetFlag(name)
	}
	return configPath
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	b := new(bytes.Buffer)
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	rootCmd.SetArgs(append([]string{"--logFile", filepath.Join(t.TempDir(), "foundrychat.log")}, args...))
	_, err := rootCmd.ExecuteC()
	return b.String(), err
}

func TestPersistentPreRunEUsesFlagValues(t *testing.T) {
	configPath := useConfig(t, "{}")

	if _, err := execute(t, "--debug", "--stream", "--markdown=false", "--baseUrl", "http://127.0.0.1:9999", "--serviceBinary", "custom-foundry", "--timeout", "12", "show", "config"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if currentConfig == nil || currentConfig.ConfigPath != configPath {
		t.Fatalf("expected config loaded with path %s", configPath)
	}
	if !currentConfig.Debug || !currentConfig.Stream || currentConfig.MarkdownEnabled() {
		t.Fatalf("expected flag values to flow into config: %+v", currentConfig)
	}
	if currentConfig.BaseURL != "http://127.0.0.1:9999" {
		t.Fatalf("expected baseUrl set, got %s", currentConfig.BaseURL)
	}
	if currentConfig.ServiceBinary != "custom-foundry" {
		t.Fatalf("expected serviceBinary set, got %s", currentConfig.ServiceBinary)
	}
	if currentConfig.TimeoutSeconds != 12 {
		t.Fatalf("expected timeout set, got %d", currentConfig.TimeoutSeconds)
	}
}

func TestPersistentPreRunEConfigFileValues(t *testing.T) {
	useConfig(t, `{"serviceBinary": "foundry-preview", "reconcile": "exact-id", "favorites": ["phi-4"]}`)

	if _, err := execute(t, "show", "config"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if currentConfig.ServiceBinary != "foundry-preview" {
		t.Fatalf("expected serviceBinary from file, got %s", currentConfig.ServiceBinary)
	}
	if currentConfig.Reconcile != "exact-id" {
		t.Fatalf("expected reconcile from file, got %s", currentConfig.Reconcile)
	}
	if len(currentConfig.Favorites) != 1 || currentConfig.Favorites[0] != "phi-4" {
		t.Fatalf("expected favorites from file, got %v", currentConfig.Favorites)
	}
}

func TestPersistentPreRunEInvalidOutput(t *testing.T) {
	useConfig(t, "{}")

	_, err := execute(t, "--output", "xml", "show", "config")
	if err == nil || !strings.Contains(err.Error(), "invalid --output") {
		t.Fatalf("expected output validation error, got %v", err)
	}
}

func TestShowConfigOutput(t *testing.T) {
	configPath := useConfig(t, "{}")

	out, err := execute(t, "--debug", "show", "config")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Config file: "+configPath) {
		t.Fatalf("expected config path in output, got %q", out)
	}
	if !strings.Contains(out, "Debug:            true") {
		t.Fatalf("expected debug line in output, got %q", out)
	}
	if !strings.Contains(out, "Base URL:         (discovered)") {
		t.Fatalf("expected discovered base URL, got %q", out)
	}
}

func TestListCommands(t *testing.T) {
	useConfig(t, "{}")

	out, err := execute(t, "list", "commands")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"foundrychat", "models download", "cli service-status", "show config"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in command list, got %q", want, out)
		}
	}
	if strings.Contains(out, "completion") {
		t.Errorf("completion commands should be hidden, got %q", out)
	}
}
