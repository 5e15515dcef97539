// Package recallcmder provides the recall command for memory retrieval.
package recallcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lyrebirdhq/mnemo/cmd/mnemo/setup"
	"github.com/lyrebirdhq/mnemo/pkg/config"
	"github.com/lyrebirdhq/mnemo/pkg/logger"
)

type RecallCommander struct {
	conversationContext string
	debug               bool
	configDir           string
	logger              *zap.Logger
}

const recallLongDesc string = `Retrieve a framed memory context block for a query.

The block is printed to stdout so it can be piped straight into a prompt.
An empty result prints nothing:
  mnemo recall "what did I name my cat?"
  mnemo recall "what did I say about that?" --context "user: the interview went well"`

func NewRecallCmd() *cobra.Command {
	cmder := &RecallCommander{}

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Retrieve a memory context block",
		Long:  recallLongDesc,
		Args:  cobra.ExactArgs(1),
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
			return cmder.run(args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.conversationContext, "context", "c", "", "Recent conversation lines for pronoun resolution")

	return cmd
}

func (c *RecallCommander) run(query string) error {
	// Logs go to stderr; stdout carries only the memory block.
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

	block := pipeline.Recall(ctx, query, c.conversationContext)
	if block != "" {
		fmt.Println(block)
	}
	return nil
}
