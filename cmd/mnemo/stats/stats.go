// Package statscmder provides the stats command.
package statscmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/cmd/mnemo/setup"
	"github.com/lyrebirdhq/mnemo/pkg/config"
	"github.com/lyrebirdhq/mnemo/pkg/logger"
)

type StatsCommander struct {
	debug     bool
	configDir string
	logger    *zap.Logger
}

func NewStatsCmd() *cobra.Command {
	cmder := &StatsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  "Prints chunk and keyword document counts for the configured indexes as JSON.",
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

	return cmd
}

func (c *StatsCommander) run() error {
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

	stats, err := pipeline.Stats(ctx)
	if err != nil {
		return fmt.Errorf("gathering stats: %w", err)
	}

	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
