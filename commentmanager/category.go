/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package commentmanager

import "strings"

// Category is a kind of status comment. A pull request has at most one live
// comment per category, found by its marker or, for comments written before
// markers existed, by one of its legacy fragments.
type Category struct {
	Name   string
	Marker string
	Legacy []string
}

// Matches reports whether body belongs to the category.
func (c Category) Matches(body string) bool {
	if strings.Contains(body, c.Marker) {
		return true
	}
	for _, fragment := range c.Legacy {
		if strings.Contains(body, fragment) {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return c.Name
}

// Legacy fragments, v1: wording of comments posted before category markers
// were embedded. Keep these as written; they must keep matching old threads
// even after the current message templates change.
var (
	legacyCommitsNotLinkedV1 = []string{
		"There is at least one commit",
		"not linked to a work item. Please update the commit message",
	}
	legacyInvalidWorkItemsV1 = []string{
		"that does not exist in Azure DevOps",
		"that do not exist in Azure DevOps",
	}
	legacyPullRequestNotLinkedV1 = []string{
		"is not linked to any work item",
	}
)

var (
	// CommitsNotLinked tracks commits with no work item reference.
	CommitsNotLinked = Category{
		Name:   "commits-not-linked",
		Marker: "<!-- azure-boards-link-check:commits-not-linked -->",
		Legacy: legacyCommitsNotLinkedV1,
	}

	// InvalidWorkItems tracks references to work items that do not exist.
	InvalidWorkItems = Category{
		Name:   "invalid-work-items",
		Marker: "<!-- azure-boards-link-check:invalid-work-items -->",
		Legacy: legacyInvalidWorkItemsV1,
	}

	// PullRequestNotLinked tracks a pull request title/body with no work
	// item reference.
	PullRequestNotLinked = Category{
		Name:   "pr-not-linked",
		Marker: "<!-- azure-boards-link-check:pr-not-linked -->",
		Legacy: legacyPullRequestNotLinkedV1,
	}
)
