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

	"github.com/faceproj/facefinder/internal/cluster"
	"github.com/faceproj/facefinder/internal/config"
	"github.com/faceproj/facefinder/internal/database/postgres"
	"github.com/faceproj/facefinder/internal/embedding"
	"github.com/faceproj/facefinder/internal/ingest"
	"github.com/faceproj/facefinder/internal/match"
	"github.com/faceproj/facefinder/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the facefinder API server.
The server exposes project management, image ingest, face search and
unique-face listing over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	pool := postgres.GetGlobalPool()
	defer pool.Close()

	projects := postgres.NewProjectRepository(pool)
	faces := postgres.NewFaceRepository(pool)
	blobs := postgres.NewBlobRepository(pool)

	provider := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim)
	engine := cluster.NewEngine(faces, cluster.Options{
		Eps:        cfg.Defaults.Cluster.Eps,
		MinSamples: cfg.Defaults.Cluster.MinSamples,
	})

	// HNSW-backed matcher with per-project caches; the ingest service
	// invalidates it when new embeddings land.
	matcher := match.NewIndexed(projects, faces)
	svc := ingest.NewService(projects, faces, blobs, provider, engine, matcher, matcher)

	port, host := resolveServeHostPort(cmd)
	if cfg.Web.APIToken == "" {
		fmt.Println("Warning: API_TOKEN is not set, the API is unauthenticated")
	}

	server := web.NewServer(cfg, port, host, web.Deps{
		Projects: projects,
		Faces:    faces,
		Blobs:    blobs,
		Ingest:   svc,
	})

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

	fmt.Printf("Starting facefinder API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
