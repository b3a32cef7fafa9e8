/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package azuredevops is a small Azure DevOps REST client covering the two
// work item operations the link checker needs: checking that a work item
// exists, and linking a GitHub pull request to a work item.
//
// # Authentication
//
// Requests use Basic auth with an empty user name and a personal access token
// (PAT) as the password. Linking pull requests resolves the internal id of the
// GitHub repository connection, which needs a PAT with full access.
//
// # Linking
//
//	client := azuredevops.NewClient("my-org", pat)
//	err := client.LinkPullRequest(ctx, azuredevops.LinkRequest{
//	    WorkItemID:  12345,
//	    Repository:  "octo-org/octo-repo",
//	    PullRequest: 42,
//	    ServerURL:   "github.com",
//	})
//
// Linking is idempotent: a relation that already exists is not an error.
package azuredevops
