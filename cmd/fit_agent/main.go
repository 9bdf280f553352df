// Package main provides the fit_agent command: the HTTP API server and a
// terminal client for one-off assessments.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fit_agent",
	Short: "Employer and job fit assessment agent",
	Long: `fit_agent researches an employer or a job description on the web, compares
the findings against a candidate profile and streams a calibrated fit assessment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to fit-agent.yaml (defaults to ./fit-agent.yaml when present)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
