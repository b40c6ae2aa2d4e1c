package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/app"
	"github.com/msto63/dolmetscher/pkg/core/config"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dolmetscher",
	Short: "meinDOLMETSCHER - Lokaler Sprachübersetzer",
	Long: `meinDOLMETSCHER übersetzt gesprochene Sprache vollständig lokal.

Ablauf:
  Aufnahme -> Stille erkannt -> Spracherkennung -> Übersetzung -> Sprachausgabe

Sprachen: Englisch, Französisch, Spanisch, Deutsch, Italienisch, Portugiesisch`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config-Datei (default: $DOLMETSCHER_CONFIG oder ./configs/dolmetscher.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose Output")
}

// loadConfig reads --config or the default locations
func loadConfig() (*config.Config, string, error) {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		return cfg, cfgFile, err
	}
	return config.LoadFromEnv()
}

// newLogger builds the root logger. The returned closer releases the log
// file, if one is configured.
func newLogger(cfg *config.Config, console io.Writer) (*logging.Logger, func() error, error) {
	lc := app.LoggerConfig(cfg)
	if verbose {
		lc.Level = "debug"
	}
	lc.Output = console

	closer := func() error { return nil }
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		lc.AdditionalOutputs = append(lc.AdditionalOutputs, f)
		closer = f.Close
	}
	return logging.NewLogger(lc), closer, nil
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Fehler: %s: %v\n", msg, err)
}
