package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/vcf2csv/internal/config"
	"github.com/JonMunkholm/vcf2csv/internal/core"
	"github.com/JonMunkholm/vcf2csv/internal/web"
)

type serveCmd struct {
	Addr  string `default:"${addr}" help:"Address to listen on."`
	Store bool   `help:"Save every conversion to PostgreSQL (DATABASE_URL)."`
}

func (s *serveCmd) Run(e *env) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := serverOptions(e.cfg)
	if err != nil {
		return err
	}
	if s.Store {
		st, closeStore, err := openStore(ctx, e.cfg.Database)
		if err != nil {
			return err
		}
		defer closeStore()
		opts.Store = st
	}

	server := web.NewServer(opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(s.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// serverOptions maps configuration onto web.Options.
func serverOptions(cfg *config.Config) (web.Options, error) {
	fields, err := core.ParseFields(cfg.Convert.Fields)
	if err != nil {
		return web.Options{}, err
	}

	return web.Options{
		Fields:         fields,
		SkipCountry:    cfg.Convert.SkipCountry,
		MaxUploadSize:  cfg.Upload.MaxSize,
		RequestTimeout: cfg.Server.RequestTimeout,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		Limiter:        web.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWait),
	}, nil
}
