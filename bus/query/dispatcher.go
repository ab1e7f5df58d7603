package query

import (
	"context"
	"log/slog"
	"slices"
)

// IDispatcher определяет основной интерфейс шины запросов.
// Таблица диспетчеризации неизменяема: регистрация выполняется только
// через Registry до вызова Build.
type IDispatcher[R any] interface {
	// Send отправляет запрос в шину для выполнения.
	// Метод находит обработчик по тегу варианта запроса, выполняет его и
	// возвращает результат или ошибку обработчика без изменений.
	Send(ctx context.Context, q Query) (R, error)

	// Kinds возвращает варианты запросов, которые обслуживает диспетчер.
	Kinds() []Kind

	// Shutdown корректно завершает работу диспетчера.
	Shutdown(ctx context.Context) error
}

// dispatcher представляет собой реализацию IDispatcher поверх цепочки провайдеров.
type dispatcher[R any] struct {
	kinds    []Kind
	provider Provider[R]
}

// newDispatcher создает диспетчер с локальным провайдером и стандартными middleware.
func newDispatcher[R any](kinds []Kind, table map[Kind]Handler[R], opts ...Option[R]) *dispatcher[R] {
	cfg := &config[R]{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	allMiddlewares := []Middleware[R]{
		NewLoggingMiddleware[R](cfg.logger),
		NewMetricsMiddleware[R](cfg.meterProvider),
		NewTracingMiddleware[R](cfg.tracerProvider),
	}
	allMiddlewares = append(allMiddlewares, cfg.middlewares...)

	return &dispatcher[R]{
		kinds:    slices.Clone(kinds),
		provider: applyMiddlewares[R](newLocalProvider(table), allMiddlewares...),
	}
}

// Send находит и выполняет обработчик для указанного запроса.
// Безопасен для конкурентного вызова.
func (d *dispatcher[R]) Send(ctx context.Context, q Query) (R, error) {
	return d.provider.Send(ctx, q)
}

// Kinds возвращает копию списка обслуживаемых вариантов.
func (d *dispatcher[R]) Kinds() []Kind {
	return slices.Clone(d.kinds)
}

// Shutdown корректно завершает работу диспетчера.
func (d *dispatcher[R]) Shutdown(ctx context.Context) error {
	return d.provider.Shutdown(ctx)
}
