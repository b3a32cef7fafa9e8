/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package enforcer

import (
	"context"

	"chainguard.dev/workitemlink/metrics"
	"chainguard.dev/workitemlink/workitem"
	"github.com/chainguard-dev/clog"
)

// ExistenceChecker checks work items one at a time, remembering every answer
// for the rest of the run.
type ExistenceChecker struct {
	svc     WorkItemService
	metrics *metrics.Enforcer
	known   map[string]bool
}

// NewExistenceChecker returns a checker backed by svc.
func NewExistenceChecker(svc WorkItemService, m *metrics.Enforcer) *ExistenceChecker {
	return &ExistenceChecker{svc: svc, metrics: m, known: map[string]bool{}}
}

// Exists reports whether the work item exists. An unparsable id or any
// error from the service counts as not existing; errors are logged, never
// returned.
func (c *ExistenceChecker) Exists(ctx context.Context, id string) bool {
	if exists, ok := c.known[id]; ok {
		return exists
	}

	log := clog.FromContext(ctx).With("workitem", id)
	exists := false
	if n, err := workitem.ParseID(id); err != nil {
		log.Warnf("Invalid work item id: %v", err)
	} else if ok, err := c.svc.WorkItemExists(ctx, n); err != nil {
		log.Warnf("Failed to check work item, treating as missing: %v", err)
	} else {
		exists = ok
	}

	c.known[id] = exists
	if c.metrics != nil {
		c.metrics.RecordExistenceCheck(ctx, exists)
	}
	return exists
}

// Missing checks refs in order and returns those that do not exist.
func (c *ExistenceChecker) Missing(ctx context.Context, refs []workitem.Reference) *workitem.Set {
	missing := workitem.NewSet()
	for _, ref := range refs {
		if !c.Exists(ctx, ref.ID) {
			missing.Add(ref)
		}
	}
	return missing
}

// Known returns the recorded answer for id, if it was checked.
func (c *ExistenceChecker) Known(id string) (exists, checked bool) {
	exists, checked = c.known[id]
	return exists, checked
}
