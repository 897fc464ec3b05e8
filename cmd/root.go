// Package cmd holds the facefinder CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facefinder",
	Short: "A face search engine over photo collections",
	Long: `Facefinder ingests photos into projects, extracts face embeddings,
groups the faces of the same person with density-based clustering and
answers "who is in this picture" queries by cosine similarity.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
