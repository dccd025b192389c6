// Package observability configures the process-wide slog logger.
//
// By default logs go to stderr as text or JSON. When an OTLP endpoint is
// configured through the standard OTEL_EXPORTER_OTLP_ENDPOINT variable, log
// records are additionally bridged into an OpenTelemetry LoggerProvider
// with a minimum-severity filter matching the configured level.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const instrumentationName = "github.com/Sopamo/curlydots-cli"

// Instrument installs the default slog logger for the process. format is
// "text" or "json". Must be called once, before any component logs.
func Instrument(level slog.Level, format string) error {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	if exporter, err := logExporter(); err != nil {
		return fmt.Errorf("configuring log exporter: %w", err)
	} else if exporter != nil {
		provider := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(
				minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level)),
			),
		)
		global.SetLoggerProvider(provider)
		handler = otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// logExporter selects an OTLP log exporter from the standard OTel
// environment variables, or nil when none is configured.
func logExporter() (sdklog.Exporter, error) {
	ctx := context.Background()

	switch os.Getenv("OTEL_LOGS_EXPORTER") {
	case "console":
		return stdoutlog.New()
	case "none":
		return nil, nil
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return nil, nil
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
		return otlploggrpc.New(ctx)
	}
	return otlploghttp.New(ctx)
}

// severity maps a slog level to the minimum OTel severity to export.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
