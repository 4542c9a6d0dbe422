package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ioprotolab/simhub/internal/app"
	"github.com/ioprotolab/simhub/internal/config"
	"github.com/ioprotolab/simhub/internal/httpapi"
)

var serveConfigFile string
var serveBind string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run every protocol simulator plus the HTTP/WebSocket control surface",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigFile, "config", "", "Config file (JSON or YAML)")
	serveCmd.Flags().StringVar(&serveBind, "bind", "", "Override the bind address for every server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if serveConfigFile != "" {
		loaded, err := config.Load(serveConfigFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if serveBind != "" {
		cfg.Server.Bind = serveBind
		cfg.HTTP.Bind = serveBind
	}

	ctx, err := app.New(cfg)
	if err != nil {
		return err
	}

	apiServer := httpapi.New(ctx, cfg.HTTP.Bind, cfg.HTTP.Port)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		ctx.Log.Info("shutdown signal received")
		cancel()
	}()

	group, groupCtx := errgroup.WithContext(runCtx)
	if err := ctx.Start(groupCtx); err != nil {
		return err
	}
	group.Go(func() error { return apiServer.ListenAndServe(groupCtx) })
	group.Go(ctx.Wait)

	err = group.Wait()
	if stopErr := ctx.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	if err != nil && err != context.Canceled {
		ctx.Log.Error("simhub exited with error", zap.Error(err))
		return err
	}
	ctx.Log.Info("simhub stopped cleanly")
	return nil
}
