/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records OpenTelemetry counters for link enforcement runs.
// Without a configured SDK every counter is a no-op.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// DefaultMeterName is the instrumentation scope used by the entry point.
const DefaultMeterName = "chainguard.dev/workitemlink"

// Enforcer provides counters for work item references, existence checks,
// artifact links and status comment writes.
type Enforcer struct {
	references   metric.Int64Counter
	existence    metric.Int64Counter
	links        metric.Int64Counter
	comments     metric.Int64Counter
	attrEnricher AttributeEnricher
}

// Option configures an Enforcer.
type Option func(*options)

type options struct {
	provider metric.MeterProvider
}

// WithMeterProvider records through mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.provider = mp
	}
}

// NewEnforcer creates counters on the named meter. A counter that fails to
// initialize is replaced by a no-op and a warning is logged.
func NewEnforcer(meterName string, opts ...Option) *Enforcer {
	o := &options{provider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(o)
	}
	meter := o.provider.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	return &Enforcer{
		references: counter(meter, meterName, "workitemlink.references",
			"The number of unique work item references found", "{references}"),
		existence: counter(meter, meterName, "workitemlink.existence_checks",
			"The number of work item existence checks", "{checks}"),
		links: counter(meter, meterName, "workitemlink.links",
			"The number of pull request artifact link attempts", "{links}"),
		comments: counter(meter, meterName, "workitemlink.comments",
			"The number of status comment writes", "{comments}"),
	}
}

func counter(meter metric.Meter, meterName, name, description, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		slog.Warn("Failed to create counter, metric will be disabled", "error", err, "meter", meterName, "counter", name)
		return noop.Int64Counter{}
	}
	return c
}

// SetAttributeEnricher sets the enricher applied before every measurement.
func (m *Enforcer) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *Enforcer) attributes(ctx context.Context, base ...attribute.KeyValue) metric.AddOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(base...)
}

// RecordReferences records n unique references found in source
// ("commits" or "pull_request").
func (m *Enforcer) RecordReferences(ctx context.Context, source string, n int) {
	if n == 0 {
		return
	}
	m.references.Add(ctx, int64(n), m.attributes(ctx, attribute.String("source", source)))
}

// RecordExistenceCheck records one existence check and its outcome.
func (m *Enforcer) RecordExistenceCheck(ctx context.Context, exists bool) {
	m.existence.Add(ctx, 1, m.attributes(ctx, attribute.Bool("exists", exists)))
}

// RecordLink records one link attempt; err is nil on success.
func (m *Enforcer) RecordLink(ctx context.Context, err error) {
	outcome := "linked"
	if err != nil {
		outcome = "failed"
	}
	m.links.Add(ctx, 1, m.attributes(ctx, attribute.String("outcome", outcome)))
}

// RecordComment records a status comment write. Writes with action "none"
// are not counted.
func (m *Enforcer) RecordComment(ctx context.Context, category, action string) {
	if action == "" || action == "none" {
		return
	}
	m.comments.Add(ctx, 1, m.attributes(ctx,
		attribute.String("category", category),
		attribute.String("action", action),
	))
}
