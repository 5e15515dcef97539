// Package remembercmder provides the remember command for indexing turns.
package remembercmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/cmd/mnemo/setup"
	"github.com/lyrebirdhq/mnemo/pkg/config"
	"github.com/lyrebirdhq/mnemo/pkg/logger"
)

type RememberCommander struct {
	emotion   string
	debug     bool
	configDir string
	logger    *zap.Logger
}

const rememberLongDesc string = `Index a single conversation turn into the memory store.

The turn is split into multiple representations (verbatim, contextual,
extracted facts) and written to the dense and keyword indexes:
  mnemo remember user "I adopted a cat named Miso last week"
  mnemo remember assistant "Miso sounds lovely" --emotion warm`

func NewRememberCmd() *cobra.Command {
	cmder := &RememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <speaker> <text>",
		Short: "Index a conversation turn",
		Long:  rememberLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %v", err)
			}
			return cmder.run(args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&cmder.emotion, "emotion", "e", "", "Emotional tone of the turn")

	return cmd
}

func (c *RememberCommander) run(speaker, text string) error {
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

	pipeline.Remember(speaker, text, c.emotion)

	// Close drains the index queue before the process exits.
	if err := pipeline.Close(); err != nil {
		return fmt.Errorf("flushing index queue: %w", err)
	}

	c.logger.Info("turn indexed",
		zap.String("speaker", speaker),
	)
	return nil
}
