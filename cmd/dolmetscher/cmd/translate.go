package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/internal/models"
	"github.com/msto63/dolmetscher/internal/translation"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

var (
	translateFrom string
	translateTo   string
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Übersetzt einen Text",
	Long: `Übersetzt einen Text mit der lokalen Übersetzungsstufe.

Ohne --from/--to werden die Sprachen aus der Config verwendet.

Beispiel:
  dolmetscher translate "Bonjour, comment puis-je vous aider aujourd'hui ?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringVar(&translateFrom, "from", "", "Quellsprache")
	translateCmd.Flags().StringVar(&translateTo, "to", "", "Zielsprache")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		printError("Config konnte nicht geladen werden", err)
		return err
	}

	from, to := cfg.Session.SourceLanguage, cfg.Session.TargetLanguage
	if translateFrom != "" {
		from = translateFrom
	}
	if translateTo != "" {
		to = translateTo
	}
	src, err := language.Parse(from)
	if err != nil {
		return err
	}
	dst, err := language.Parse(to)
	if err != nil {
		return err
	}

	registry, err := models.FromStrings(cfg.Models.SpeechLanguages, cfg.Models.TranslationPairs)
	if err != nil {
		return err
	}
	stage := translation.NewStage(translation.NewPhrasebook(0), registry, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := stage.Translate(ctx, strings.Join(args, " "), src, dst)
	if err != nil {
		printError("Übersetzung fehlgeschlagen", err)
		return err
	}

	fmt.Printf("%s -> %s (Konfidenz %.2f)\n", result.SourceLanguage.DisplayName(), result.TargetLanguage.DisplayName(), result.Confidence)
	fmt.Println(result.TranslatedText)
	return nil
}
