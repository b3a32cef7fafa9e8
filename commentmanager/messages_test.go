/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package commentmanager

import (
	"strconv"
	"strings"
	"testing"

	"chainguard.dev/workitemlink/workitem"
)

func TestCommitsNotLinkedMessage(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		got := CommitsNotLinkedMessage(42, testRepoURL, commits(n))
		if n == 1 {
			if !strings.Contains(got, "There is 1 commit in pull request #42 that is not linked to a work item ([`aaaaaaa`]("+testRepoURL+"/commit/"+strings.Repeat("a", 40)+"))") {
				t.Errorf("singular message missing inline commit link:\n%s", got)
			}
			if strings.Contains(got, "<details>") {
				t.Errorf("singular message should not have a details block:\n%s", got)
			}
			continue
		}
		if !strings.Contains(got, "There are "+strconv.Itoa(n)+" commits") {
			t.Errorf("plural message missing count:\n%s", got)
		}
		if !strings.Contains(got, "<summary>View all "+strconv.Itoa(n)+" commits missing work items</summary>") {
			t.Errorf("plural message missing summary:\n%s", got)
		}
		if b := bullets(got); b != n {
			t.Errorf("bullets = %d, want %d", b, n)
		}
		if !strings.Contains(got, "chore: change A\n") || strings.Contains(got, "body\n") {
			t.Errorf("bullets should carry only the commit title:\n%s", got)
		}
	}
}

func TestInvalidWorkItemsMessage(t *testing.T) {
	c := workitem.Commit{SHA: "0123456789abcdef", Message: "feat: x AB#9"}
	fromCommit := workitem.Reference{ID: "9", Commit: &c}
	fromPR := workitem.Reference{ID: "77"}

	one := InvalidWorkItemsMessage(42, testRepoURL, []workitem.Reference{fromCommit})
	for _, want := range []string{
		"There is 1 work item referenced in pull request #42 that does not exist in Azure DevOps",
		"`AB#9` (commit [`0123456`](" + testRepoURL + "/commit/0123456789abcdef))",
	} {
		if !strings.Contains(one, want) {
			t.Errorf("singular message missing %q:\n%s", want, one)
		}
	}
	if strings.Contains(one, "<details>") {
		t.Errorf("singular message should not have a details block:\n%s", one)
	}

	two := InvalidWorkItemsMessage(42, testRepoURL, []workitem.Reference{fromCommit, fromPR})
	for _, want := range []string{
		"There are 2 work items referenced in pull request #42 that do not exist in Azure DevOps",
		"<summary>View all 2 invalid work items</summary>",
		"- `AB#77` (in PR title/body)",
	} {
		if !strings.Contains(two, want) {
			t.Errorf("plural message missing %q:\n%s", want, two)
		}
	}
	if b := bullets(two); b != 2 {
		t.Errorf("bullets = %d, want 2", b)
	}
}

func TestSuccessMessages(t *testing.T) {
	for _, msg := range []string{CommitsLinkedMessage(7), WorkItemsValidMessage(7), PullRequestLinkedMessage(7)} {
		if !strings.HasPrefix(msg, "✅ ") || !strings.Contains(msg, "#7") {
			t.Errorf("unexpected success message %q", msg)
		}
	}
}
