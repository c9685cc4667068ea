package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/viewlulu/pouch-backend/internal/auth"
	"github.com/viewlulu/pouch-backend/internal/catalog/postgres"
	"github.com/viewlulu/pouch-backend/internal/config"
	"github.com/viewlulu/pouch-backend/internal/detect"
	"github.com/viewlulu/pouch-backend/internal/fingerprint"
	"github.com/viewlulu/pouch-backend/internal/recognizer"
	"github.com/viewlulu/pouch-backend/internal/storage"
	"github.com/viewlulu/pouch-backend/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the pouch backend API server.
The server exposes registration, the cosmetics catalog, and the
photo detection endpoint.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildDetector picks the detection backend from configuration: the local
// fingerprint resolver, or the remote recognition service when configured.
func buildDetector(cfg *config.Config, store storage.ObjectStore) (detect.Detector, error) {
	switch cfg.Detect.Mode {
	case "remote":
		if cfg.Detect.RecognizerURL == "" {
			return nil, errors.New("RECOGNIZER_URL is required in remote detection mode")
		}
		fmt.Printf("Using remote recognition service at %s\n", cfg.Detect.RecognizerURL)
		return recognizer.NewClient(cfg.Detect.RecognizerURL), nil
	case "local", "":
		fetcher := detect.NewFetcher(store, cfg.Detect.Concurrency)
		hasher := fingerprint.NewHasher(cfg.Detect.GridSize, cfg.Detect.GridSize)
		policy := detect.Policy{
			Threshold: cfg.Detect.Threshold,
			Collapse:  cfg.Detect.Collapse,
		}
		fmt.Printf("Using local fingerprint detection (threshold %.0f/%d)\n",
			policy.Threshold, hasher.Bits())
		return detect.NewResolver(fetcher, hasher, policy), nil
	default:
		return nil, fmt.Errorf("unknown detection mode %q", cfg.Detect.Mode)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := storage.NewMinIOStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to prepare storage bucket: %w", err)
	}

	detector, err := buildDetector(cfg, store)
	if err != nil {
		return err
	}

	users := postgres.NewUserRepository(pool)
	groups := postgres.NewGroupRepository(pool)
	photos := postgres.NewPhotoRepository(pool)
	authService := auth.NewService(users, cfg.Auth)

	server := web.NewServer(cfg, authService, groups, photos, groups, store, detector)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting pouch backend on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
