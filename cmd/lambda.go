package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLambdaCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run the JSON API as an AWS Lambda behind API Gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), c.cfg, c.log)
			if err != nil {
				c.log.Error("startup failed", zap.Error(err))
				return err
			}
			c.log.Info("starting lambda handler",
				zap.String("model", a.process.DefaultModel()),
				zap.String("system_prompt", promptSummary(a.systemPrompt)),
			)
			lambda.Start(a.handler.Handle)
			return nil
		},
	}
}
