package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance HTTP API.
Capture clients post photos to /api/v1/attendance; each operator gets a
session that remembers the last capture and pending deletions.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
}

// resolveServeOptions resolves listener and session options from flags and environment variables.
func resolveServeOptions(cmd *cobra.Command) web.Options {
	opts := web.Options{
		Port:           mustGetInt(cmd, "port"),
		Host:           mustGetString(cmd, "host"),
		SessionSecret:  mustGetString(cmd, "session-secret"),
		AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
	}

	if opts.SessionSecret == "" {
		opts.SessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &opts.Port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		opts.Host = envHost
	}
	return opts
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	b, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Printf("Identity images: %s\n", cfg.Storage.FacesDir)
	if cfg.Storage.Backend == config.BackendPostgres {
		fmt.Printf("Attendance ledger: PostgreSQL\n")
	} else {
		fmt.Printf("Attendance ledger: %s\n", cfg.Storage.LedgerPath)
	}

	opts := resolveServeOptions(cmd)
	server := web.NewServer(cfg, web.Backends{
		Identities: b.identities,
		Ledger:     b.ledger,
		Detector:   b.detector,
	}, opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", opts.Host, opts.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
