package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/pkg/core/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Zeigt oder prüft die Konfiguration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Zeigt die wirksame Konfiguration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [datei]",
	Short: "Prüft eine Config-Datei",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configValidateCmd)
	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "toml", "Ausgabeformat (toml, yaml)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		printError("Config konnte nicht geladen werden", err)
		return err
	}
	data, err := cfg.Encode(configFormat)
	if err != nil {
		return err
	}
	if path == "" {
		path = "Defaults"
	}
	fmt.Printf("# Quelle: %s\n", path)
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) == 1 {
		path = args[0]
	}

	var err error
	if path == "" {
		_, path, err = config.LoadFromEnv()
	} else {
		_, err = config.Load(path)
	}
	if path == "" {
		path = "Defaults"
	}
	if err != nil {
		fmt.Printf("[-] %s: %v\n", path, err)
		return err
	}
	fmt.Printf("[+] %s ist gültig\n", path)
	return nil
}
