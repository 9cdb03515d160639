// Package main provides the entry point for the StoryHub HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storyhub",
	Short: "StoryHub HTTP API Server",
	Long:  "StoryHub serves the story platform REST API: accounts, candidate profiles, and text or voice stories with live feeds and PDF export.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
