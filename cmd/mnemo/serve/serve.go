// Package servecmder provides the serve command for the MCP memory server.
package servecmder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/api/mcp"
	"github.com/lyrebirdhq/mnemo/cmd/mnemo/setup"
	"github.com/lyrebirdhq/mnemo/pkg/config"
	"github.com/lyrebirdhq/mnemo/pkg/logger"
)

type ServeCommander struct {
	listen    string
	debug     bool
	configDir string
	logger    *zap.Logger
}

const serveLongDesc string = `Run the MCP memory server.

Exposes the memory pipeline over the Model Context Protocol so agents can
call memory_remember, memory_recall, and memory_stats as tools:
  mnemo serve
  mnemo serve --listen :9090`

const serveShortDesc string = "Run the MCP memory server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", ":8082", "Address for the MCP server to listen on")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.New(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.FromViper(v)

	ctx := context.Background()
	pipeline, cleanup, err := setup.NewPipeline(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Pipeline: pipeline,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating mcp server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    c.listen,
		Handler: mcpServer.Handler(),
	}

	c.logger.Info("starting mcp server",
		zap.String("listen_addr", c.listen),
		zap.String("vector_provider", cfg.VectorStore.Provider),
		zap.String("keyword_provider", cfg.KeywordIndex.Provider),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("mcp server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down mcp server: %w", err)
	}

	// Give the current session a summary chunk before the indexes close.
	if err := pipeline.FlushSession(shutdownCtx); err != nil {
		c.logger.Warn("session flush failed on shutdown", zap.Error(err))
	}
	return nil
}
