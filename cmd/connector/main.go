package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-connector/core"
	"github.com/goliatone/go-connector/hss"
	"github.com/goliatone/go-connector/pipeline"
	"github.com/goliatone/go-connector/transport"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	defaultListenAddr     = ":8080"
	serverReadTimeout     = 15 * time.Second
	serverWriteTimeout    = 60 * time.Second
	serverShutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		_, logger := glog.Resolve("connector", nil, nil)
		glog.Ensure(logger).Error("connector exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, logger := glog.Resolve("connector", nil, nil)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("connector"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	configProvider := core.NewCfgxConfigProvider(core.NewEnvRawConfigLoader())
	loaded, err := configProvider.Load(ctx, core.DefaultConfig())
	if err != nil {
		return err
	}
	cfg, err := core.GoOptionsResolver{}.Resolve(core.DefaultConfig(), loaded, core.Config{})
	if err != nil {
		return err
	}

	client := hss.NewClient(hss.ClientConfig{
		BaseURL:        cfg.Downstream.BaseURL,
		AuthToken:      cfg.Downstream.AuthToken,
		RequestTimeout: cfg.Downstream.CallTimeout(),
	})
	processor, err := pipeline.NewProcessor(
		cfg,
		pipeline.NewTokenAuthenticator(cfg.Inbound.AuthToken),
		client,
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	handler := transport.NewHandler(processor, transport.WithLogger(logger))
	addr := os.Getenv("CONNECTOR_LISTEN_ADDR")
	if addr == "" {
		addr = defaultListenAddr
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("connector listening", "addr", addr, "service", cfg.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, draining in-flight requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
