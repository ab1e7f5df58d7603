package query

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// config содержит неэкспортируемую конфигурацию для шины запросов.
type config[R any] struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	middlewares    []Middleware[R]
}

// Option определяет тип для функциональных опций, которые изменяют конфигурацию шины.
type Option[R any] func(*config[R])

// WithLogger возвращает опцию, которая устанавливает логгер для шины.
// nil отключает логирование.
func WithLogger[R any](logger *slog.Logger) Option[R] {
	return func(c *config[R]) {
		c.logger = logger
	}
}

// WithTracerProvider возвращает опцию, которая устанавливает провайдер трассировки.
func WithTracerProvider[R any](provider trace.TracerProvider) Option[R] {
	return func(c *config[R]) {
		c.tracerProvider = provider
	}
}

// WithMeterProvider возвращает опцию, которая устанавливает провайдер метрик.
func WithMeterProvider[R any](provider metric.MeterProvider) Option[R] {
	return func(c *config[R]) {
		c.meterProvider = provider
	}
}

// WithMiddleware возвращает опцию, которая добавляет один или несколько middleware в цепочку обработки.
func WithMiddleware[R any](mw ...Middleware[R]) Option[R] {
	return func(c *config[R]) {
		c.middlewares = append(c.middlewares, mw...)
	}
}
