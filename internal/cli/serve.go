package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/x-research-team/post-query/readmodel"
	"github.com/x-research-team/post-query/transport/rest"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер поиска постов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) (err error) {
	store, closeStore, err := openStore(ctx, a.cfg.Store, a.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tel, err := newTelemetry(a.cfg.Telemetry)
	if err != nil {
		return err
	}
	dispatcher, err := readmodel.NewDispatcher(store, tel.dispatcherOptions(a.logger)...)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, dispatcher.Shutdown(shutdownCtx), tel.Shutdown(shutdownCtx))
	}()

	a.logger.Info("шина запросов собрана",
		"driver", a.cfg.Store.Driver,
		"kinds", len(dispatcher.Kinds()),
		"telemetry", a.cfg.Telemetry.Enabled,
	)

	lookup := rest.NewPostLookup(dispatcher,
		rest.WithLogger(a.logger),
		rest.WithTimeout(a.cfg.HTTP.RequestTimeout),
		rest.WithPropagator(tel.propagator()),
	)
	srv := rest.NewServer(rest.Config{
		Addr:            a.cfg.HTTP.Addr,
		ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout,
		Logger:          a.logger,
	}, lookup)

	return srv.Serve(ctx)
}
