package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"writing-assistant/handler"
	"writing-assistant/internal/completion"
	"writing-assistant/internal/config"
	"writing-assistant/internal/integrations/anthropic"
	"writing-assistant/internal/integrations/openai"
	"writing-assistant/internal/integrations/paramstore"
	"writing-assistant/internal/integrations/retry"
	"writing-assistant/internal/repository"
	"writing-assistant/internal/systemprompt"
	"writing-assistant/internal/usecase"
)

type app struct {
	handler      *handler.Handler
	process      *usecase.ProcessService
	store        *repository.DocumentStore
	systemPrompt string
}

// buildApp wires every dependency from cfg. It is shared by serve and lambda.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	var getter paramstore.Getter
	if cfg.NeedsParamStore() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, fmt.Errorf("create SSM client: %w", err)
		}
		getter = ssmClient
	}

	prompt, err := systemprompt.Load(ctx, cfg.SystemPrompt, getter)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}

	providers, err := buildProviders(cfg, getter, log)
	if err != nil {
		return nil, err
	}
	router, err := completion.NewRouter(providers...)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	if !router.Available(cfg.LLM.DefaultModel) {
		log.Warn("no provider serves the default model", zap.String("model", cfg.LLM.DefaultModel))
	}

	process, err := usecase.NewProcessService(router, prompt, cfg.LLM.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("create process service: %w", err)
	}

	store, err := repository.NewDocumentStore(cfg.Documents.WriteRoot)
	if err != nil {
		return nil, fmt.Errorf("create document store: %w", err)
	}
	docs, err := usecase.NewDocumentService(store)
	if err != nil {
		return nil, fmt.Errorf("create document service: %w", err)
	}

	h, err := handler.NewHandler(process, docs, router,
		handler.WithLogger(log.Named("http")),
		handler.WithAllowedOrigin(cfg.Server.AllowedOrigin),
		handler.WithRequestTimeout(cfg.Server.RequestTimeout),
		handler.WithMaxUploadBytes(cfg.Server.MaxBodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("create handler: %w", err)
	}

	return &app{
		handler:      h,
		process:      process,
		store:        store,
		systemPrompt: prompt,
	}, nil
}

func buildProviders(cfg *config.Config, getter paramstore.Getter, log *zap.Logger) ([]completion.Provider, error) {
	httpClient := retry.NewStandardClient(retry.Config{
		RetryMax:     cfg.LLM.RetryMax,
		RetryWaitMin: cfg.LLM.RetryWaitMin,
		RetryWaitMax: cfg.LLM.RetryWaitMax,
		Timeout:      cfg.LLM.Timeout,
	}, log.Named("retry"))

	var providers []completion.Provider

	if cfg.OpenAI.Enabled() {
		opts := []openai.Option{
			openai.WithHTTPClient(httpClient),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
		}
		key := cfg.OpenAI.APIKey
		if name, ok := cfg.OpenAI.KeyParameter(); ok {
			opts = append(opts, openai.WithParamStore(getter, name))
			key = ""
		}
		client, err := openai.NewClient(key, opts...)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI client: %w", err)
		}
		providers = append(providers, client)
	}

	if cfg.Anthropic.Enabled() {
		opts := []anthropic.Option{
			anthropic.WithHTTPClient(httpClient),
			anthropic.WithBaseURL(cfg.Anthropic.BaseURL),
			anthropic.WithMaxTokens(cfg.Anthropic.MaxTokens),
		}
		key := cfg.Anthropic.APIKey
		if name, ok := cfg.Anthropic.KeyParameter(); ok {
			opts = append(opts, anthropic.WithParamStore(getter, name))
			key = ""
		}
		client, err := anthropic.NewClient(key, opts...)
		if err != nil {
			return nil, fmt.Errorf("create Anthropic client: %w", err)
		}
		providers = append(providers, client)
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	log.Info("completion providers configured", zap.Strings("providers", names))
	return providers, nil
}
