package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/app"
	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/internal/tui/monitor"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/config"
)

var (
	runManual   bool
	runSource   string
	runTarget   string
	runSimulate bool
	runTUI      bool
	runNoTTS    bool
	runNoServer bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Startet den Übersetzer",
	Long: `Startet eine Übersetzungssitzung.

Im automatischen Modus endet eine Aufnahme, sobald die eingestellte
Stilledauer erreicht ist. Im manuellen Modus wird die Aufnahme nur
über Stopp beendet (TUI, Hotkey, HTTP-API oder WebSocket).

Beispiele:
  dolmetscher run --tui
  dolmetscher run --source en --target fr --manual
  dolmetscher run --simulate --no-tts`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runManual, "manual", false, "Manueller Modus (keine Stilleerkennung)")
	runCmd.Flags().StringVar(&runSource, "source", "", "Quellsprache (en, fr, es, de, it, pt)")
	runCmd.Flags().StringVar(&runTarget, "target", "", "Zielsprache (en, fr, es, de, it, pt)")
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "Synthetisches Audiosignal statt Mikrofon")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Terminal-Monitor anzeigen")
	runCmd.Flags().BoolVar(&runNoTTS, "no-tts", false, "Sprachausgabe deaktivieren")
	runCmd.Flags().BoolVar(&runNoServer, "no-server", false, "HTTP-API, gRPC und Hotkey nicht starten")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		printError("Config konnte nicht geladen werden", err)
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		printError("Ungültige Option", err)
		return err
	}

	// The monitor owns the terminal; logs then only go to the log file.
	var console io.Writer = os.Stderr
	if runTUI {
		console = io.Discard
	}
	logger, closeLog, err := newLogger(cfg, console)
	if err != nil {
		printError("Logger konnte nicht erstellt werden", err)
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, app.Options{
		Config:         cfg,
		ConfigPath:     path,
		Logger:         logger,
		DisableServers: runNoServer,
	})
	if err != nil {
		printError("Start fehlgeschlagen", err)
		return err
	}
	defer a.Close()

	var foreground func(context.Context) error
	if runTUI {
		foreground = func(ctx context.Context) error {
			return monitor.Run(ctx, a.Coordinator())
		}
	}
	return a.Run(ctx, foreground)
}

// applyRunFlags overrides the loaded configuration with explicit flags
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("manual") {
		cfg.Session.ManualMode = runManual
	}
	if runSource != "" {
		code, err := language.Parse(runSource)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInvalidConfig, "invalid source language")
		}
		cfg.Session.SourceLanguage = string(code)
	}
	if runTarget != "" {
		code, err := language.Parse(runTarget)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInvalidConfig, "invalid target language")
		}
		cfg.Session.TargetLanguage = string(code)
	}
	if runSimulate {
		cfg.Audio.Source = "synthetic"
	}
	if runNoTTS {
		cfg.Synthesis.Enabled = false
	}
	return cfg.Validate()
}
