package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rkgupta29/assignment-story-creation-app/internal/config"
	"github.com/rkgupta29/assignment-story-creation-app/internal/server"
)

var (
	servePort   int
	serveDriver string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the HTTP server. The document store backend is selected with
DOCSTORE_DRIVER (memory, mongo, or postgres); media storage and voice
transcription are enabled when MEDIA_BUCKET and GEMINI_API_KEY are set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&serveDriver, "docstore", "", "Document store driver: memory, mongo, or postgres (overrides DOCSTORE_DRIVER)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	if serveDriver != "" {
		if err := os.Setenv("DOCSTORE_DRIVER", serveDriver); err != nil {
			return err
		}
	}

	serverCfg, err := config.NewServerConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		serverCfg.Port = servePort
	}

	srv, err := server.New(context.Background(), serverCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start()
}
