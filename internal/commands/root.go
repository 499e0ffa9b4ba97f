// internal/commands/root.go
package foundrychat

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/mwiater/foundrychat/internal/logging"
	"github.com/mwiater/foundrychat/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "foundrychat",
	Short:         "foundrychat: terminal client for a local Foundry inference service",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		for _, name := range []string{"debug", "stream"} {
			if !cmd.Flags().Changed(name) {
				_ = cmd.Flags().Set(name, strconv.FormatBool(viper.GetBool(name)))
			}
		}
		for _, name := range []string{"baseUrl", "serviceBinary", "logFile", "tracesEndpoint"} {
			if !cmd.Flags().Changed(name) {
				_ = cmd.Flags().Set(name, viper.GetString(name))
			}
		}
		if !cmd.Flags().Changed("timeout") {
			_ = cmd.Flags().Set("timeout", strconv.Itoa(viper.GetInt("timeout")))
		}

		var cfg appconfig.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		if cmd.Flags().Changed("markdown") {
			enabled, _ := cmd.Flags().GetBool("markdown")
			cfg.Markdown = &enabled
		}
		cfg.ApplyDefaults()
		cfg.ConfigPath = viper.ConfigFileUsed()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		switch outputFormat(cmd) {
		case outputTable, outputJSON, outputYAML:
		default:
			return fmt.Errorf("invalid --output %q (want table, json or yaml)", outputFormat(cmd))
		}
		currentConfig = &cfg

		if err := logging.Init(currentConfig.LogFilePath()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.SetDebug(currentConfig.Debug)

		if err := telemetry.Init(cmd.Context(), currentConfig.TracesEndpoint); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		if telemetry.Enabled() {
			logging.LogDebug("exporting traces to %s", currentConfig.TracesEndpoint)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	err := rootCmd.Execute()
	flushTelemetry()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

// flushTelemetry sends buffered spans before the process exits.
func flushTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil {
		logging.LogEvent("trace shutdown failed: %v", err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging and dumps")
	rootCmd.PersistentFlags().Bool("stream", false, "stream chat replies as they are generated")
	rootCmd.PersistentFlags().Bool("markdown", true, "normalize and render markdown in chat output")
	rootCmd.PersistentFlags().String("baseUrl", "", "service URL (skips discovery)")
	rootCmd.PersistentFlags().String("serviceBinary", "", "foundry command used for discovery and the cli subcommands")
	rootCmd.PersistentFlags().Int("timeout", 0, "request timeout in seconds (0 = default)")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")
	rootCmd.PersistentFlags().String("tracesEndpoint", "", "OTLP/HTTP collector URL for request traces (empty disables tracing)")
	rootCmd.PersistentFlags().StringP("output", "o", outputTable, "output format: table, json or yaml")

	for _, name := range []string{"debug", "stream", "markdown", "baseUrl", "serviceBinary", "timeout", "logFile", "tracesEndpoint"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.SetEnvPrefix("FOUNDRYCHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// ensureConfigLoaded reads the config and sets safe defaults.
func ensureConfigLoaded() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) && cfgFile == appconfig.DefaultConfigPath {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// DebugEnabled returns true if debug mode is enabled.
func DebugEnabled() bool { return viper.GetBool("debug") }

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
