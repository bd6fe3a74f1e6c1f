package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup installs the default slog logger. Records always go to w as text;
// when OTEL_EXPORTER_OTLP_ENDPOINT is set they are also exported over OTLP,
// along with traces. Any extra handlers receive every record too.
// The returned func flushes and stops the exporters.
func Setup(ctx context.Context, service string, w io.Writer, extra ...slog.Handler) (func(context.Context) error, error) {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFromEnv()})
	handlers := append([]slog.Handler{text}, extra...)

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		slog.SetDefault(slog.New(Fanout(handlers...)))
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", service))

	logExporter, err := otlploghttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp log exporter: %w", err)
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)

	traceExporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create otlp trace exporter: %w", err), loggerProvider.Shutdown(ctx))
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	bridge := otelslog.NewHandler(service, otelslog.WithLoggerProvider(loggerProvider))
	slog.SetDefault(slog.New(Fanout(append(handlers, bridge)...)))
	slog.InfoContext(ctx, "exporting telemetry", "endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))

	return func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), loggerProvider.Shutdown(ctx))
	}, nil
}

func levelFromEnv() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}
