package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"minio2local/internal/app"
	"minio2local/internal/config"
	"minio2local/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "minio2local",
	Short: "Incrementally mirror a MinIO/S3 bucket to a local directory",
	Long: `A concurrent bucket mirror that downloads only new and changed objects,
preserves superseded local versions as timestamped tombstones, and detects
remote deletions against a local state cache.`,
	RunE: runMirror,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")

	// Source flags
	rootCmd.Flags().String("endpoint", "", "MinIO endpoint")
	rootCmd.Flags().String("access-key", "", "MinIO access key")
	rootCmd.Flags().String("secret-key", "", "MinIO secret key")
	rootCmd.Flags().Bool("secure", false, "Use HTTPS for source")

	// Mirror flags
	rootCmd.Flags().String("bucket", "", "Bucket name (required)")
	rootCmd.Flags().String("prefix", "", "Object prefix filter")
	rootCmd.Flags().String("local-root", "", "Local directory to mirror into (required)")
	rootCmd.Flags().Int("concurrency", 8, "Maximum concurrent downloads")
	rootCmd.Flags().String("state-db", "./mirror-state.db", "State database file (must be outside the local root)")
	rootCmd.Flags().Bool("probe-disk", false, "Classify against the filesystem instead of the state cache")
	rootCmd.Flags().String("metrics-addr", "", "Prometheus listen address (empty disables)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug/info/warn/error)")
}

func runMirror(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	mirror, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create mirror: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal, stopping...")
		cancel()
	}()

	err = mirror.Run(ctx)

	if closeErr := mirror.Close(); closeErr != nil {
		log.Error("Error closing mirror", zap.Error(closeErr))
	}

	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
