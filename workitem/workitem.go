/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workitem extracts Azure Boards work item references (AB#123) from
// free text and tracks where each reference was first seen.
package workitem

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ReferenceRegex matches work item references like "AB#123" or "ab#123".
var ReferenceRegex = regexp.MustCompile(`(?i)AB#(\d+)`)

// Extract returns the work item ids referenced in text, without the AB#
// prefix, in order of first occurrence and with duplicates removed.
func Extract(text string) []string {
	matches := ReferenceRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}

// ParseID converts a work item id string into the numeric form used by
// Azure DevOps.
func ParseID(id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("parsing work item id %q: %w", id, err)
	}
	return n, nil
}

// Commit is a pull request commit as seen by the checks.
type Commit struct {
	SHA     string
	Message string
}

// ShortSHA returns the abbreviated commit hash.
func (c Commit) ShortSHA() string {
	if len(c.SHA) <= 7 {
		return c.SHA
	}
	return c.SHA[:7]
}

// Title returns the first line of the commit message.
func (c Commit) Title() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(title)
}

// Reference is a work item id along with the commit it was found in.
// A nil Commit means the reference came from the pull request title or body.
type Reference struct {
	ID     string
	Commit *Commit
}

// FromCommit reports whether the reference was found in a commit message.
func (r Reference) FromCommit() bool {
	return r.Commit != nil
}

// String renders the reference the way it is written in text.
func (r Reference) String() string {
	return "AB#" + r.ID
}
