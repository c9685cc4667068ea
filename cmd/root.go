// Package cmd wires the CLI commands for the pouch backend.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pouch-backend",
	Short: "Backend for a personal cosmetics pouch catalog",
	Long: `Pouch Backend stores a user's cosmetics as photo groups and detects
which registered cosmetic an uploaded photo shows, using perceptual
image fingerprints or an external recognition service.`,
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
