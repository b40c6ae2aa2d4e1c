package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Listet die Audio-Eingabegeräte",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := audio.ListInputDevices()
		if err != nil {
			printError("Geräte konnten nicht gelesen werden", err)
			return err
		}
		if len(devices) == 0 {
			fmt.Println("Keine Eingabegeräte gefunden.")
			return nil
		}

		fmt.Println("Eingabegeräte:")
		fmt.Println("--------------")
		for _, d := range devices {
			marker := "   "
			if d.IsDefault {
				marker = "[*]"
			}
			fmt.Printf("  %s %-40s %d Kanal/Kanäle, %.0f Hz\n", marker, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
