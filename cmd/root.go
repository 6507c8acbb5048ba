package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/scanhub/pkg/config"
	"github.com/user/scanhub/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "scanhub",
	Short: "Security scan orchestration (semgrep, trivy, gitleaks)",
	Long: `scanhub runs SAST, dependency, container image and secret scans through
external tools, normalizes their findings, keeps the results and alerts
Discord or Slack when a scan turns up critical issues.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		format := cfg.Log.Format
		if LogFormat != "" {
			format = LogFormat
		}
		logCloser, err = logging.Setup(logging.Options{
			Level:  cfg.Log.Level,
			Format: format,
			File:   cfg.Log.File,
			Debug:  DebugMode,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

var (
	DebugMode  bool
	LogFormat  string
	ConfigFile string

	logCloser io.Closer
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// loadConfig reads --config when given, the default file otherwise, then applies the environment.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if ConfigFile != "" {
		cfg, err = config.LoadFile(ConfigFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// loadFileConfig reads the config without environment overrides, for commands that save it back.
func loadFileConfig() (*config.Config, error) {
	if ConfigFile != "" {
		return config.LoadFile(ConfigFile)
	}
	return config.LoadConfig()
}

func saveConfig(cfg *config.Config) error {
	if ConfigFile != "" {
		return config.SaveFile(ConfigFile, cfg)
	}
	return config.SaveConfig(cfg)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&LogFormat, "log-format", "", "Log format (text or json)")
	rootCmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "Path to config file (default ~/.scanhub/config.yaml)")
}
