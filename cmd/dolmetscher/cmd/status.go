package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/msto63/dolmetscher/internal/server"
	coregrpc "github.com/msto63/dolmetscher/pkg/core/grpc"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Zeigt den Status eines laufenden Übersetzers",
	Long: `Fragt den gRPC-Health-Service und die HTTP-API eines laufenden
Übersetzers ab.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		printError("Config konnte nicht geladen werden", err)
		return err
	}

	fmt.Println("meinDOLMETSCHER Status")
	fmt.Println("======================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	running := false
	if cfg.Server.GRPC.Enabled {
		conn, err := coregrpc.Dial(coregrpc.DefaultClientConfig(cfg.GRPCAddress()), logging.Discard())
		if err != nil {
			fmt.Printf("  [-] gRPC %s - %v\n", cfg.GRPCAddress(), err)
		} else {
			defer conn.Close()
			for _, service := range []string{"", "session", "models", "memory", "storage"} {
				status, err := coregrpc.CheckHealth(ctx, conn, service, 2*time.Second)
				name := service
				if name == "" {
					name = "gesamt"
				}
				icon := "[+]"
				text := status.String()
				if err != nil {
					icon, text = "[-]", err.Error()
				} else if status != healthpb.HealthCheckResponse_SERVING {
					icon = "[-]"
				} else {
					running = true
				}
				fmt.Printf("  %s %-10s %s\n", icon, name, text)
			}
		}
	}

	if cfg.Server.HTTP.Enabled {
		state, err := fetchState(ctx, "http://"+cfg.HTTPAddress()+"/api/v1/state")
		fmt.Println()
		if err != nil {
			fmt.Printf("  [-] HTTP %s - nicht erreichbar\n", cfg.HTTPAddress())
		} else {
			running = true
			fmt.Printf("  Zustand:    %s\n", state.Label)
			fmt.Printf("  Sprachen:   %s -> %s\n", state.Settings.SourceLanguage.DisplayName(), state.Settings.TargetLanguage.DisplayName())
			fmt.Printf("  Modus:      %s\n", map[bool]string{true: "manuell", false: "automatisch"}[state.Settings.ManualMode])
			fmt.Printf("  Nachrichten: %d\n", state.Messages)
		}
	}

	fmt.Println()
	if !running {
		fmt.Println("Kein laufender Übersetzer gefunden. Starte mit: dolmetscher run")
	}
	return nil
}

func fetchState(ctx context.Context, url string) (*server.StateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var state server.StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}
