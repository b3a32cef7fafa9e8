/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package commentmanager

import (
	"fmt"
	"strings"

	"chainguard.dev/workitemlink/workitem"
)

const rerunHint = "re-run the failed job to continue. Any new commits to the pull request will also re-run the job."

// CommitsNotLinkedMessage describes commits missing a work item reference.
// repoURL is the repository web URL used to link each commit.
func CommitsNotLinkedMessage(pr int, repoURL string, commits []workitem.Commit) string {
	var sb strings.Builder
	if len(commits) == 1 {
		fmt.Fprintf(&sb, "❌ There is 1 commit in pull request #%d that is not linked to a work item (%s). ",
			pr, commitLink(repoURL, commits[0]))
		sb.WriteString("Please update the commit message to include a work item reference (`AB#xxx`) and " + rerunHint)
		return sb.String()
	}

	fmt.Fprintf(&sb, "❌ There are %d commits in pull request #%d that are not linked to a work item. ", len(commits), pr)
	sb.WriteString("Please update the commit messages to include a work item reference (`AB#xxx`) and " + rerunHint)

	bullets := make([]string, 0, len(commits))
	for _, c := range commits {
		bullets = append(bullets, fmt.Sprintf("%s %s", commitLink(repoURL, c), c.Title()))
	}
	writeDetails(&sb, fmt.Sprintf("View all %d commits missing work items", len(commits)), bullets)
	return sb.String()
}

// CommitsLinkedMessage replaces CommitsNotLinkedMessage once every commit
// references a work item.
func CommitsLinkedMessage(pr int) string {
	return fmt.Sprintf("✅ All commits in pull request #%d are now linked to work items.", pr)
}

// InvalidWorkItemsMessage describes referenced work items that do not exist,
// annotated with where each reference was found.
func InvalidWorkItemsMessage(pr int, repoURL string, refs []workitem.Reference) string {
	var sb strings.Builder
	if len(refs) == 1 {
		fmt.Fprintf(&sb, "❌ There is 1 work item referenced in pull request #%d that does not exist in Azure DevOps: %s. ",
			pr, referenceOrigin(repoURL, refs[0]))
		sb.WriteString("Please update the reference to an existing work item and " + rerunHint)
		return sb.String()
	}

	fmt.Fprintf(&sb, "❌ There are %d work items referenced in pull request #%d that do not exist in Azure DevOps. ", len(refs), pr)
	sb.WriteString("Please update the references to existing work items and " + rerunHint)

	bullets := make([]string, 0, len(refs))
	for _, ref := range refs {
		bullets = append(bullets, referenceOrigin(repoURL, ref))
	}
	writeDetails(&sb, fmt.Sprintf("View all %d invalid work items", len(refs)), bullets)
	return sb.String()
}

// WorkItemsValidMessage replaces InvalidWorkItemsMessage once every
// referenced work item exists.
func WorkItemsValidMessage(pr int) string {
	return fmt.Sprintf("✅ All work items referenced in pull request #%d now exist in Azure DevOps.", pr)
}

// PullRequestNotLinkedMessage describes a pull request whose title and body
// reference no work item.
func PullRequestNotLinkedMessage(pr int) string {
	return fmt.Sprintf("❌ Pull request #%d is not linked to any work item(s). "+
		"Please update the title or body to include a work item reference (`AB#xxx`) and re-run the failed job to continue.", pr)
}

// PullRequestLinkedMessage replaces PullRequestNotLinkedMessage once the
// title or body references a work item.
func PullRequestLinkedMessage(pr int) string {
	return fmt.Sprintf("✅ Pull request #%d is now linked to a work item.", pr)
}

func commitLink(repoURL string, c workitem.Commit) string {
	return fmt.Sprintf("[`%s`](%s/commit/%s)", c.ShortSHA(), repoURL, c.SHA)
}

func referenceOrigin(repoURL string, ref workitem.Reference) string {
	if ref.FromCommit() {
		return fmt.Sprintf("`%s` (commit %s)", ref, commitLink(repoURL, *ref.Commit))
	}
	return fmt.Sprintf("`%s` (in PR title/body)", ref)
}

func writeDetails(sb *strings.Builder, summary string, bullets []string) {
	fmt.Fprintf(sb, "\n\n<details>\n<summary>%s</summary>\n\n", summary)
	for _, b := range bullets {
		sb.WriteString("- ")
		sb.WriteString(b)
		sb.WriteString("\n")
	}
	sb.WriteString("\n</details>")
}
