// Package main provides the pdfqa CLI: upload PDFs, ask questions about them
// and manage the document registry from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/app"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/config"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/pipeline"
)

var owner string

var rootCmd = &cobra.Command{
	Use:   "pdfqa",
	Short: "Question answering over PDF documents",
	Long: `CLI for uploading PDFs and asking questions about their text, tables and figures.

Environment variables:
  QDRANT_HOST      Qdrant hostname (default: localhost)
  QDRANT_PORT      Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY   API key for embeddings and completions
  OPENAI_BASE_URL  OpenAI-compatible endpoint (optional)
  EXTRACTOR_URL    High-fidelity partition service (optional)
  DATA_DIR         Registry and image database directory (default: ./data)
  GITHUB_TOKEN     GitHub token for import-github (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "", "document owner (empty uploads and reads as guest)")
	rootCmd.AddCommand(uploadCmd, askCmd, listCmd, deleteCmd, renameCmd, importCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// withApp loads configuration, builds the application and runs fn against it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		logger.Debug("Command failed", "command", cmd.Name(), "error", err)
		var pe *pipeline.Error
		if errors.As(err, &pe) {
			return errors.New(pipeline.PublicMessage(err))
		}
		return err
	}
	return nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
