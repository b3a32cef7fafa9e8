/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ServiceName is reported as service.name on exported metrics.
const ServiceName = "workitem-linker"

// ExportConfig selects the metrics exporter using the standard OpenTelemetry
// environment variables.
type ExportConfig struct {
	// Exporter is "otlp", "console" or "none". When unset, an OTLP
	// endpoint selects "otlp" and anything else means "none".
	Exporter        string `env:"OTEL_METRICS_EXPORTER"`
	Endpoint        string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	MetricsEndpoint string `env:"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"`
}

// endpointURL is the full OTLP/HTTP metrics URL. A signal specific endpoint
// is used as is; the shared endpoint gets /v1/metrics appended.
func (c ExportConfig) endpointURL() string {
	if c.MetricsEndpoint != "" {
		return c.MetricsEndpoint
	}
	if c.Endpoint != "" {
		return strings.TrimSuffix(c.Endpoint, "/") + "/v1/metrics"
	}
	return ""
}

func (c ExportConfig) exporter() string {
	if c.Exporter != "" {
		return strings.ToLower(c.Exporter)
	}
	if c.endpointURL() != "" {
		return "otlp"
	}
	return "none"
}

// SetupOption configures Setup.
type SetupOption func(*setupOptions)

type setupOptions struct {
	console io.Writer
}

// WithConsoleWriter sets where the console exporter writes. Defaults to
// stderr, as stdout carries workflow commands.
func WithConsoleWriter(w io.Writer) SetupOption {
	return func(o *setupOptions) {
		o.console = w
	}
}

// Setup installs a global MeterProvider exporting through the exporter the
// environment behind l selects. The returned shutdown flushes pending
// measurements and must run before the process exits. With no exporter the
// global provider is left untouched and shutdown does nothing.
func Setup(ctx context.Context, l envconfig.Lookuper, opts ...SetupOption) (metric.MeterProvider, func(context.Context) error, error) {
	o := &setupOptions{console: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	var cfg ExportConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, nil, fmt.Errorf("processing telemetry environment: %w", err)
	}

	var exp sdkmetric.Exporter
	switch name := cfg.exporter(); name {
	case "none":
		return otel.GetMeterProvider(), func(context.Context) error { return nil }, nil
	case "console":
		e, err := stdoutmetric.New(stdoutmetric.WithWriter(o.console))
		if err != nil {
			return nil, nil, fmt.Errorf("creating console metrics exporter: %w", err)
		}
		exp = e
	case "otlp":
		u := cfg.endpointURL()
		if u == "" {
			return nil, nil, errors.New("OTEL_METRICS_EXPORTER=otlp requires OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		e, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(u))
		if err != nil {
			return nil, nil, fmt.Errorf("creating OTLP metrics exporter for %s: %w", u, err)
		}
		exp = e
	default:
		return nil, nil, fmt.Errorf("unsupported OTEL_METRICS_EXPORTER %q", name)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
	)
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}
