package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/app"
	"github.com/msto63/dolmetscher/internal/conversation"
	"github.com/msto63/dolmetscher/pkg/core/config"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

var (
	historyLimit        int
	historyOutput       string
	historyArchive      bool
	historyPurgeArchive bool
	historyYes          bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Verwaltet den Gesprächsverlauf",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Zeigt die letzten Nachrichten",
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exportiert den Verlauf als JSON",
	Long: `Exportiert den Verlauf als JSON nach stdout oder in eine Datei.

Mit --archive wird das Transkript zusätzlich im Archivverzeichnis
abgelegt und, falls konfiguriert, nach S3 hochgeladen.`,
	RunE: runHistoryExport,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Löscht den gespeicherten Verlauf",
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyExportCmd, historyClearCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Anzahl der Nachrichten (0 = alle)")
	historyExportCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Zieldatei (default: stdout)")
	historyExportCmd.Flags().BoolVar(&historyArchive, "archive", false, "Transkript archivieren")
	historyClearCmd.Flags().BoolVar(&historyYes, "yes", false, "Ohne Rückfrage löschen")
	historyClearCmd.Flags().BoolVar(&historyPurgeArchive, "archive", true, "Vor dem Löschen archivieren")
}

func openStore() (*config.Config, *conversation.SQLiteStore, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := conversation.NewSQLiteStore(conversation.SQLiteConfig{Path: cfg.Storage.Path})
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func newArchiver(cfg *config.Config) *conversation.Archiver {
	logger := logging.NewLogger(app.LoggerConfig(cfg)).Named("archive")
	return conversation.NewArchiver(cfg.Archive.Dir, app.ArchiveS3Config(cfg), logger)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		printError("Verlauf nicht verfügbar", err)
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	messages, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Println("Keine Nachrichten gespeichert.")
		return nil
	}

	for _, m := range messages {
		fmt.Printf("%s  [%s->%s]  %s\n", m.Timestamp.Format("2006-01-02 15:04:05"), m.SourceLanguage, m.TargetLanguage, m.Original)
		fmt.Printf("%s  %s\n\n", "                    ", m.Translated)
	}
	fmt.Printf("%d Nachricht(en)\n", len(messages))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore()
	if err != nil {
		printError("Verlauf nicht verfügbar", err)
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	messages, err := store.Recent(ctx, 0)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(conversation.Transcript{
		ExportedAt: time.Now().UTC(),
		Count:      len(messages),
		Messages:   messages,
	}, "", "  ")
	if err != nil {
		return err
	}

	if historyOutput == "" {
		fmt.Println(string(data))
	} else if err := os.WriteFile(historyOutput, data, 0644); err != nil {
		printError("Export fehlgeschlagen", err)
		return err
	} else {
		fmt.Printf("%d Nachricht(en) exportiert nach %s\n", len(messages), historyOutput)
	}

	if historyArchive {
		locations, err := newArchiver(cfg).Archive(ctx, messages)
		if err != nil {
			printError("Archivierung fehlgeschlagen", err)
			return err
		}
		for _, loc := range locations {
			fmt.Fprintf(os.Stderr, "Archiviert: %s\n", loc)
		}
	}
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if !historyYes {
		return fmt.Errorf("zum Löschen --yes angeben")
	}

	cfg, store, err := openStore()
	if err != nil {
		printError("Verlauf nicht verfügbar", err)
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var archiver *conversation.Archiver
	if historyPurgeArchive {
		archiver = newArchiver(cfg)
	}
	if err := conversation.NewPersister(store, archiver, logging.Discard()).Cleared(ctx); err != nil {
		printError("Löschen fehlgeschlagen", err)
		return err
	}
	fmt.Println("Verlauf gelöscht.")
	return nil
}
