/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package enforcer

import (
	"strings"

	"chainguard.dev/workitemlink/report"
	"chainguard.dev/workitemlink/workitem"
)

// Result is the outcome of a run.
type Result struct {
	// Failures holds one human-readable message per failed check, in the
	// order the checks ran.
	Failures []string

	// Commits maps each work item found in commits to the first commit
	// referencing it.
	Commits *workitem.Set
	// PullRequest holds the work items found in the title and body.
	PullRequest *workitem.Set
	// Invalid holds the referenced work items that do not exist.
	Invalid *workitem.Set
	// Linked records each link attempt by work item id; false means the
	// attempt failed.
	Linked map[string]bool

	checker *ExistenceChecker
}

func newResult() *Result {
	return &Result{
		Commits:     workitem.NewSet(),
		PullRequest: workitem.NewSet(),
		Invalid:     workitem.NewSet(),
		Linked:      map[string]bool{},
	}
}

func (r *Result) fail(msg string) {
	r.Failures = append(r.Failures, msg)
}

// Failed reports whether any check failed.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Message joins the failures into the single message reported for the run.
func (r *Result) Message() string {
	return strings.Join(r.Failures, "\n")
}

// References returns every referenced work item, commits first.
func (r *Result) References() *workitem.Set {
	return r.Commits.Union(r.PullRequest)
}

// Rows describes each referenced work item for the job summary.
func (r *Result) Rows() []report.Row {
	refs := r.References().References()
	rows := make([]report.Row, 0, len(refs))
	for _, ref := range refs {
		row := report.Row{Reference: ref, Exists: report.NotChecked, Linked: report.NotChecked}
		if r.checker != nil {
			if exists, checked := r.checker.Known(ref.ID); checked {
				row.Exists = yesNo(exists)
			}
		}
		if linked, attempted := r.Linked[ref.ID]; attempted {
			row.Linked = yesNo(linked)
		}
		rows = append(rows, row)
	}
	return rows
}

// Outputs returns the action outputs for the run.
func (r *Result) Outputs() map[string]string {
	return map[string]string{
		"work-items":         strings.Join(r.References().IDs(), ","),
		"invalid-work-items": strings.Join(r.Invalid.IDs(), ","),
	}
}

func yesNo(b bool) string {
	if b {
		return report.Yes
	}
	return report.No
}
