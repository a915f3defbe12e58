// File: cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"teknigo_backend/internal/config"
	"teknigo_backend/internal/directory"
)

var batchSize int

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Teknigo API server",
	SilenceUsage: true,
	// Running the binary without a subcommand starts the server.
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Create the default application settings document if it does not exist",
	RunE:  runInitConfig,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex-technicians",
	Short: "Rebuild the technician search index from Firestore",
	Long: `Reads every technician profile from Firestore in batches and bulk-indexes
its public view into Elasticsearch. Requires ELASTICSEARCH_URL.`,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().IntVar(&batchSize, "batch-size", directory.DefaultBatchSize, "Number of profiles read and indexed per batch")
	rootCmd.AddCommand(serveCmd, initConfigCmd, reindexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err)
		return err
	}

	a, cleanup, err := initializeApp(cfg)
	if err != nil {
		log.Printf("FATAL: Failed to initialize server: %v", err)
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		a.Logger.Info("Received signal, shutting down server", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	a.Logger.Info("Server shutdown complete")
	return nil
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	settingsService, cleanup, err := initializeSettings(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize settings service: %w", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	created, err := settingsService.Initialize(ctx)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintln(cmd.OutOrStdout(), "Default settings created.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Settings already exist; nothing to do.")
	}
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	if batchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive, got %d", batchSize)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if !cfg.DirectoryEnabled() {
		return fmt.Errorf("ELASTICSEARCH_URL is not set; nothing to reindex")
	}

	a, cleanup, err := initializeApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	a.Logger.Info("Starting technician reindex", zap.Int("batchSize", batchSize))
	result, err := a.Directory.Reindex(cmd.Context(), a.Users, batchSize)
	if err != nil {
		a.Logger.Error("Technician reindex failed", zap.Error(err),
			zap.Int("indexed", result.Indexed), zap.Int("failed", result.Failed))
		return err
	}
	a.Logger.Info("Technician reindex completed",
		zap.Int("indexed", result.Indexed), zap.Int("failed", result.Failed))
	if result.Failed > 0 {
		return fmt.Errorf("%d technician profiles failed to index", result.Failed)
	}
	return nil
}
