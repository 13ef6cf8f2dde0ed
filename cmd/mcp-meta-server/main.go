// Package main provides the entry point for the MCP meta-server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcp-meta-server/internal/app"
	"mcp-meta-server/internal/config"
	"mcp-meta-server/internal/container"
	"mcp-meta-server/internal/obslog"
	"mcp-meta-server/internal/version"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// gracefulShutdownTimeout bounds how long Stop may take before the process
// force-exits.
const gracefulShutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:           "mcp-meta-server",
		Short:         "Aggregate many MCP tool servers behind one endpoint",
		Long:          "mcp-meta-server presents itself as a single MCP server while multiplexing, deduplicating and routing across many downstream MCP servers spawned as child processes.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.ConfigPath, "config", "c", "", "JSON file or directory of *.mcp.json provider configs")
	flags.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level (error, warn, info, debug)")
	flags.BoolVar(&cfg.DisableDedup, "disable-dedup", false, "expose every namespaced tool instead of deduplicating")
	flags.Float64Var(&cfg.SimilarityThreshold, "sim-threshold", cfg.SimilarityThreshold, "deduplication similarity threshold (0..1)")
	flags.BoolVar(&cfg.AutoMerge, "auto-merge", cfg.AutoMerge, "automatically merge similar tools")

	return cmd
}

// runServer builds the container, starts the application and blocks until
// shutdown. The returned error means startup failed (exit code 1).
func runServer(cfg config.Config) error {
	obslog.Setup(cfg.LogLevel)

	c, err := container.BuildContainer()
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := c.Provide(func() config.Config { return cfg }); err != nil {
		return fmt.Errorf("failed to provide config: %w", err)
	}

	return c.Invoke(func(application *app.App) error {
		if err := application.Start(); err != nil {
			return fmt.Errorf("failed to start application: %w", err)
		}

		// Use buffered channel to avoid missing signals.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		sessionDone := make(chan error, 1)
		go func() { sessionDone <- application.Wait() }()

		select {
		case sig := <-quit:
			logrus.Infof("Received signal: %v, initiating graceful shutdown...", sig)
		case <-sessionDone:
			logrus.Info("Upstream session closed, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			application.Stop(shutdownCtx)
			close(done)
		}()

		// Wait for shutdown to complete or second signal for force exit.
		select {
		case <-done:
			logrus.Info("Graceful shutdown completed successfully")
		case <-quit:
			logrus.Warn("Second interrupt signal received, forcing immediate exit")
			os.Exit(1)
		case <-shutdownCtx.Done():
			logrus.Warn("Shutdown timeout exceeded, forcing exit")
			os.Exit(1)
		}
		return nil
	})
}
