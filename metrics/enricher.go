/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher adds run context (repository, pull request) to the base
// attributes of every recorded measurement.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

// PullRequestAttributes returns an AttributeEnricher that tags measurements
// with the repository and pull request number.
func PullRequestAttributes(repository string, number int) AttributeEnricher {
	return func(_ context.Context, base []attribute.KeyValue) []attribute.KeyValue {
		return append(base,
			attribute.String("repository", repository),
			attribute.Int("pull_request", number),
		)
	}
}
