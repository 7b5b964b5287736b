package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"writing-assistant/handler"
	"writing-assistant/internal/config"
	"writing-assistant/internal/systemprompt"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	systemPrompt string
	host         string
	port         int
	model        string
	staticDir    string
	writeRoot    string
}

func newServeCmd(c *cli) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Serve the editor page and the JSON API on a local address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.apply(cmd, c.cfg)
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), c.cfg, c.log)
		},
	}

	f.register(cmd)
	return cmd
}

func (f *serveFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.systemPrompt, "system-prompt", "s", "", "Path to a markdown file (or ssm:/name) with the system prompt")
	flags.StringVar(&f.host, "host", "127.0.0.1", "Host to bind to")
	flags.IntVar(&f.port, "port", 5000, "Port to bind to")
	flags.StringVar(&f.model, "model", "", "Default completion model")
	flags.StringVar(&f.staticDir, "static-dir", "", "Directory holding index.html and app.js")
	flags.StringVar(&f.writeRoot, "write-root", "", "Directory documents and images are written to")
}

// apply copies explicitly set flags over the environment configuration.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("system-prompt") {
		cfg.SystemPrompt = f.systemPrompt
	}
	if flags.Changed("host") {
		cfg.Server.Host = f.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = f.port
	}
	if flags.Changed("model") {
		cfg.LLM.DefaultModel = f.model
	}
	if flags.Changed("static-dir") {
		cfg.Server.StaticDir = f.staticDir
	}
	if flags.Changed("write-root") {
		cfg.Documents.WriteRoot = f.writeRoot
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handler.NewHTTPHandler(a.handler, handler.HTTPOptions{
			StaticDir:    cfg.Server.StaticDir,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			Logger:       log.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	log.Info("starting server",
		zap.String("addr", srv.Addr),
		zap.Bool("debug", cfg.Debug),
		zap.String("model", a.process.DefaultModel()),
		zap.String("write_root", a.store.Root()),
		zap.String("system_prompt", promptSummary(a.systemPrompt)),
	)
	if a.systemPrompt != "" {
		log.Info("system prompt loaded", zap.String("preview", systemprompt.Preview(a.systemPrompt, 100)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
