package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/faceproj/facefinder/internal/cluster"
	"github.com/faceproj/facefinder/internal/config"
	"github.com/faceproj/facefinder/internal/database"
	"github.com/faceproj/facefinder/internal/database/postgres"
)

var reclusterCmd = &cobra.Command{
	Use:   "recluster",
	Short: "Re-cluster all faces of a project",
	Long: `Re-run density-based clustering over every stored embedding of a project.

Uploads cluster each batch independently, so labels from different uploads
never refer to the same group. Reclustering replaces all of them with one
consistent labeling over the whole project.

Examples:
  # Recluster by project name
  facefinder recluster --project "wedding 2024"

  # Tighter clusters
  facefinder recluster --project wedding --eps 0.4`,
	RunE: runRecluster,
}

func init() {
	rootCmd.AddCommand(reclusterCmd)

	reclusterCmd.Flags().String("project", "", "Project ID or name (required)")
	reclusterCmd.Flags().Float64("eps", 0, "Neighborhood radius in cosine distance (0 = configured default)")
	reclusterCmd.Flags().Int("min-samples", 0, "Minimum neighborhood size for a core point (0 = configured default)")
}

func runRecluster(cmd *cobra.Command, args []string) error {
	projectRef := mustGetString(cmd, "project")
	if projectRef == "" {
		return errors.New("--project is required")
	}

	ctx := context.Background()
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Println("Connecting to PostgreSQL...")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	projects := postgres.NewProjectRepository(pool)
	faces := postgres.NewFaceRepository(pool)

	// --project accepts an ID first, then falls back to a name lookup.
	project, err := projects.GetProject(ctx, projectRef)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		project, err = projects.GetProjectByName(ctx, projectRef)
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
	}
	if project == nil {
		return fmt.Errorf("project %q not found", projectRef)
	}

	opts := cluster.Options{
		Eps:        cfg.Defaults.Cluster.Eps,
		MinSamples: cfg.Defaults.Cluster.MinSamples,
	}
	if eps := mustGetFloat64(cmd, "eps"); eps > 0 {
		opts.Eps = eps
	}
	if minSamples := mustGetInt(cmd, "min-samples"); minSamples > 0 {
		opts.MinSamples = minSamples
	}

	embedded, err := faces.ListEmbedded(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to load faces: %w", err)
	}
	if len(embedded) == 0 {
		fmt.Println("Project has no embedded faces, nothing to do.")
		return nil
	}

	fmt.Printf("Clustering %d faces of project %q (eps=%.2f, min_samples=%d)...\n",
		len(embedded), project.Name, opts.Eps, opts.MinSamples)

	embeddings := make([][]float32, len(embedded))
	for i := range embedded {
		embeddings[i] = embedded[i].Embedding
	}

	labels, err := cluster.Run(embeddings, opts)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	bar := progressbar.NewOptions(len(embedded),
		progressbar.OptionSetDescription("Writing labels"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var written, failed int
	clusters := make(map[string]struct{})
	for i := range embedded {
		if err := faces.SetClusterResult(ctx, embedded[i].ID, labels[i], embedded[i].Embedding); err != nil {
			failed++
			bar.Add(1)
			continue
		}
		written++
		if labels[i] != database.NoiseLabel {
			clusters[labels[i]] = struct{}{}
		}
		bar.Add(1)
	}
	fmt.Println()

	fmt.Printf("\nCompleted: %d faces labeled across %d clusters, %d errors\n",
		written, len(clusters), failed)
	return nil
}
