/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/workitemlink/pullrequest"
	"github.com/sethvargo/go-githubactions"
)

const defaultAPIURL = "https://api.github.com"

var errNoPullRequest = errors.New("Could not get pull request number from context") //nolint: staticcheck

// resourceFromContext identifies the pull request that triggered the run.
func resourceFromContext(ghctx *githubactions.GitHubContext) (pullrequest.Resource, error) {
	number := pullRequestNumber(ghctx.Event)
	if number == 0 {
		return pullrequest.Resource{}, errNoPullRequest
	}
	owner, repo, ok := strings.Cut(ghctx.Repository, "/")
	if !ok || owner == "" || repo == "" {
		return pullrequest.Resource{}, fmt.Errorf("invalid repository %q in workflow context", ghctx.Repository)
	}
	return pullrequest.Resource{Owner: owner, Repo: repo, Number: number}, nil
}

// pullRequestNumber reads the number from a pull_request or
// pull_request_target event payload.
func pullRequestNumber(event map[string]any) int {
	if pr, ok := event["pull_request"].(map[string]any); ok {
		if n, ok := pr["number"].(float64); ok {
			return int(n)
		}
	}
	return 0
}

// runURL links to the current workflow run.
func runURL(ghctx *githubactions.GitHubContext) string {
	if ghctx.ServerURL == "" || ghctx.Repository == "" || ghctx.RunID == 0 {
		return ""
	}
	return fmt.Sprintf("%s/%s/actions/runs/%d", strings.TrimSuffix(ghctx.ServerURL, "/"), ghctx.Repository, ghctx.RunID)
}
