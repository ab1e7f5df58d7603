package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/x-research-team/post-query/bus/query"
	"github.com/x-research-team/post-query/internal/config"
	"github.com/x-research-team/post-query/readmodel"
)

// telemetry держит провайдеры OpenTelemetry процесса. Спаны и метрики
// выгружаются построчным JSON в файл telemetry.output или в stderr.
type telemetry struct {
	meters *sdkmetric.MeterProvider
	traces *sdktrace.TracerProvider
	out    io.Closer
}

// newTelemetry создает провайдеры с экспортерами, если телеметрия включена.
// Иначе возвращает nil, и шина использует глобальные no-op провайдеры.
func newTelemetry(cfg config.TelemetryConfig) (*telemetry, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var w io.Writer = os.Stderr
	var out io.Closer
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("не удалось открыть файл телеметрии %s: %w", cfg.Output, err)
		}
		w, out = f, f
	}

	spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		closeQuietly(out)
		return nil, fmt.Errorf("не удалось создать экспортер спанов: %w", err)
	}
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		closeQuietly(out)
		return nil, fmt.Errorf("не удалось создать экспортер метрик: %w", err)
	}

	return &telemetry{
		meters: sdkmetric.NewMeterProvider(sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(cfg.Interval)),
		)),
		traces: sdktrace.NewTracerProvider(sdktrace.WithBatcher(spanExporter)),
		out:    out,
	}, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// dispatcherOptions возвращает опции шины с логгером и, при наличии, провайдерами.
func (t *telemetry) dispatcherOptions(logger *slog.Logger) []query.Option[[]readmodel.PostEntity] {
	opts := []query.Option[[]readmodel.PostEntity]{
		query.WithLogger[[]readmodel.PostEntity](logger),
	}
	if t == nil {
		return opts
	}
	return append(opts,
		query.WithMeterProvider[[]readmodel.PostEntity](t.meters),
		query.WithTracerProvider[[]readmodel.PostEntity](t.traces),
	)
}

// propagator извлекает контекст трассировки из входящих HTTP-заголовков.
// Без телеметрии извлекать нечего.
func (t *telemetry) propagator() propagation.TextMapPropagator {
	if t == nil {
		return nil
	}
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// Shutdown выгружает накопленное и останавливает провайдеры.
func (t *telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	err := errors.Join(t.meters.Shutdown(ctx), t.traces.Shutdown(ctx))
	if t.out != nil {
		err = errors.Join(err, t.out.Close())
	}
	return err
}
