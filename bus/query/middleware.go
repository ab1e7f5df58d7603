package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/x-research-team/post-query/bus/query"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "messaging."
)

// Middleware определяет интерфейс для middleware шины запросов.
type Middleware[R any] interface {
	Wrap(next Provider[R]) Provider[R]
}

// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
type MiddlewareFunc[R any] func(next Provider[R]) Provider[R]

// Wrap реализует интерфейс Middleware.
func (f MiddlewareFunc[R]) Wrap(next Provider[R]) Provider[R] {
	return f(next)
}

// ProviderFunc позволяет использовать функцию как Provider без собственного Shutdown.
type ProviderFunc[R any] func(ctx context.Context, q Query) (R, error)

// Send вызывает функцию.
func (f ProviderFunc[R]) Send(ctx context.Context, q Query) (R, error) {
	return f(ctx, q)
}

// Shutdown ничего не делает.
func (f ProviderFunc[R]) Shutdown(context.Context) error {
	return nil
}

// loggingMiddleware реализует Middleware для логирования операций с запросами.
type loggingMiddleware[R any] struct {
	logger *slog.Logger
}

// NewLoggingMiddleware создает новое middleware для логирования.
func NewLoggingMiddleware[R any](logger *slog.Logger) Middleware[R] {
	if logger == nil {
		return &noopMiddleware[R]{}
	}
	return &loggingMiddleware[R]{
		logger: logger,
	}
}

// Wrap оборачивает провайдер для добавления логирования.
func (m *loggingMiddleware[R]) Wrap(next Provider[R]) Provider[R] {
	return &loggingProvider[R]{
		next:   next,
		logger: m.logger,
	}
}

// loggingProvider - это обертка над провайдером запросов, которая добавляет логирование.
type loggingProvider[R any] struct {
	next   Provider[R]
	logger *slog.Logger
}

// Send логирует и отправляет запрос.
func (p *loggingProvider[R]) Send(ctx context.Context, q Query) (result R, err error) {
	queryType, queryID := getQueryTypeAndID(q)
	p.logger.DebugContext(ctx, "отправка запроса", slog.String("query_type", queryType), slog.String("query_id", queryID))

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime)
		// Текст ошибки пишет только транспортный слой, здесь достаточно вида.
		if err != nil {
			p.logger.WarnContext(ctx, "запрос завершился ошибкой",
				slog.String("query_type", queryType),
				slog.String("query_id", queryID),
				slog.String("error_kind", string(KindOf(err))),
				slog.Duration("duration", duration),
			)
			return
		}
		p.logger.DebugContext(ctx, "запрос выполнен",
			slog.String("query_type", queryType),
			slog.Duration("duration", duration),
		)
	}()

	return p.next.Send(ctx, q)
}

// Shutdown делегирует вызов следующему провайдеру в цепочке.
func (p *loggingProvider[R]) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// metricsMiddleware реализует Middleware для сбора метрик OpenTelemetry.
type metricsMiddleware[R any] struct {
	dispatchCounter     metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// NewMetricsMiddleware создает новое middleware для сбора метрик.
func NewMetricsMiddleware[R any](provider metric.MeterProvider) Middleware[R] {
	if provider == nil {
		return &noopMiddleware[R]{}
	}

	meter := provider.Meter(instrumentationName)

	dispatchCounter, err := meter.Int64Counter(
		metricKeyPrefix+"dispatch.count",
		metric.WithDescription("Количество отправленных запросов"),
		metric.WithUnit("{queries}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик dispatch.count: %v", err))
	}

	processDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"process.duration",
		metric.WithDescription("Длительность обработки запроса"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму process.duration: %v", err))
	}

	return &metricsMiddleware[R]{
		dispatchCounter:     dispatchCounter,
		processDurationHist: processDurationHist,
	}
}

// Wrap оборачивает провайдер для добавления сбора метрик.
func (m *metricsMiddleware[R]) Wrap(next Provider[R]) Provider[R] {
	return &metricsProvider[R]{
		next:                next,
		dispatchCounter:     m.dispatchCounter,
		processDurationHist: m.processDurationHist,
	}
}

// metricsProvider - это обертка над провайдером запросов, которая собирает метрики.
type metricsProvider[R any] struct {
	next                Provider[R]
	dispatchCounter     metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// Send собирает метрики и отправляет запрос.
func (p *metricsProvider[R]) Send(ctx context.Context, q Query) (result R, err error) {
	startTime := time.Now()
	result, err = p.next.Send(ctx, q)
	duration := float64(time.Since(startTime).Microseconds()) / 1000

	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("query.type", string(kindOf(q))),
		attribute.String("status", status),
		attribute.String("error.kind", string(KindOf(err))),
	)

	// Метрики пишутся без контекста запроса, чтобы отмена не теряла точки.
	p.dispatchCounter.Add(context.WithoutCancel(ctx), 1, attrs)
	p.processDurationHist.Record(context.WithoutCancel(ctx), duration, attrs)

	return result, err
}

// Shutdown делегирует вызов.
func (p *metricsProvider[R]) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// tracingMiddleware реализует Middleware для распределенной трассировки OpenTelemetry.
type tracingMiddleware[R any] struct {
	tracer trace.Tracer
}

// NewTracingMiddleware создает новое middleware для трассировки.
// Родительский спан берется из контекста: транспортный слой извлекает его
// из заголовков входящего запроса.
func NewTracingMiddleware[R any](tp trace.TracerProvider) Middleware[R] {
	if tp == nil {
		return &noopMiddleware[R]{}
	}

	return &tracingMiddleware[R]{
		tracer: tp.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
	}
}

// Wrap оборачивает провайдер для добавления логики трассировки.
func (m *tracingMiddleware[R]) Wrap(next Provider[R]) Provider[R] {
	return &tracingProvider[R]{
		next:   next,
		tracer: m.tracer,
	}
}

// tracingProvider - это обертка над провайдером запросов, которая управляет спанами трассировки.
type tracingProvider[R any] struct {
	next   Provider[R]
	tracer trace.Tracer
}

// Send создает спан для выполнения запроса.
func (p *tracingProvider[R]) Send(ctx context.Context, q Query) (result R, err error) {
	queryType := string(kindOf(q))
	spanName := fmt.Sprintf("%s process", queryType)

	ctx, span := p.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("query.type", queryType)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(KindOf(err)))
		}
		span.End()
	}()

	return p.next.Send(ctx, q)
}

// Shutdown делегирует вызов.
func (p *tracingProvider[R]) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// applyMiddlewares применяет цепочку middleware к базовому провайдеру.
// Первый middleware в списке оказывается внешним.
func applyMiddlewares[R any](provider Provider[R], middlewares ...Middleware[R]) Provider[R] {
	p := provider
	for i := len(middlewares) - 1; i >= 0; i-- {
		p = middlewares[i].Wrap(p)
	}
	return p
}

// noopMiddleware представляет собой пустое middleware.
type noopMiddleware[R any] struct{}

// Wrap просто возвращает следующий провайдер без изменений.
func (m *noopMiddleware[R]) Wrap(next Provider[R]) Provider[R] {
	return next
}

// getQueryTypeAndID извлекает тег и ID запроса с помощью рефлексии.
func getQueryTypeAndID(q Query) (string, string) {
	if isNil(q) {
		return "<nil>", "unknown"
	}

	queryType := string(q.Kind())
	queryID := "unknown"

	val := reflect.ValueOf(q)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return queryType, queryID
	}

	if idField := val.FieldByName("ID"); idField.IsValid() && idField.CanInterface() {
		queryID = fmt.Sprintf("%v", idField.Interface())
	}

	return queryType, queryID
}
