package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

// Config - параметры HTTP-сервера.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Server отдает модель чтения по HTTP и корректно останавливается по отмене контекста.
type Server struct {
	cfg     Config
	handler http.Handler
	logger  *slog.Logger
}

// NewServer собирает маршрутизатор поверх обработчиков поиска.
func NewServer(cfg Config, lookup *PostLookup) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	return &Server{
		cfg:     cfg,
		handler: NewRouter(lookup),
		logger:  logger,
	}
}

// NewRouter возвращает маршрутизатор с маршрутами поиска и проверкой живости.
func NewRouter(lookup *PostLookup) http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, BaseResponse{Message: "ok"})
	})
	r.Route(BasePath, lookup.Routes)
	return r
}

// Handler возвращает корневой обработчик сервера.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve слушает адрес из конфигурации и блокируется до отмены контекста.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("не удалось открыть адрес %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener обслуживает запросы на готовом слушателе.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP-сервер запущен", "addr", ln.Addr().String())

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("остановка HTTP-сервера")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
