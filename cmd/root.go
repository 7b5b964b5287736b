package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"writing-assistant/internal/config"
	"writing-assistant/internal/logger"
)

// cli carries state shared by the subcommands once PersistentPreRunE has run.
type cli struct {
	envFile  string
	logLevel string
	debug    bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "writing-assistant",
		Short: "AI writing assistant backend",
		Long: `writing-assistant rewrites, expands and generates text through a chat-completion
model and stores markdown documents with their images on local disk.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "Read environment variables from this file if it exists")
	flags.StringVar(&c.logLevel, "log-level", "", "Set the logging level (debug, info, warn, error, dpanic, panic, fatal)")
	flags.BoolVar(&c.debug, "debug", false, "Enable debug logging")

	root.AddCommand(newServeCmd(c), newLambdaCmd(c))
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return err
	}
	c.cfg = config.Load()

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.cfg.LogLevel = c.logLevel
	}
	if flags.Changed("debug") {
		c.cfg.Debug = c.debug
	}

	c.log = logger.New(c.cfg.LogLevel, c.cfg.Debug)
	c.log.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("log_level", logger.ParseLevel(c.cfg.LogLevel, c.cfg.Debug).String()),
	)
	return nil
}

func promptSummary(prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return "none"
	}
	return fmt.Sprintf("%d chars", len([]rune(prompt)))
}
