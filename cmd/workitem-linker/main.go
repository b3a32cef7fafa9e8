/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main is the GitHub Actions entry point that enforces Azure Boards
// work item references on a pull request and links them in Azure DevOps.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainguard.dev/workitemlink/azuredevops"
	"chainguard.dev/workitemlink/commentmanager"
	"chainguard.dev/workitemlink/enforcer"
	"chainguard.dev/workitemlink/metrics"
	"chainguard.dev/workitemlink/pullrequest"
	"chainguard.dev/workitemlink/report"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-githubactions"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx = clog.WithLogger(ctx, clog.New(slog.NewTextHandler(os.Stderr, nil)))
	code := execute(ctx, githubactions.New(), envconfig.OsLookuper())
	cancel()
	os.Exit(code)
}

// execute runs the action with metrics export enabled and returns the
// process exit code. Unclassified errors are annotated on the job.
func execute(ctx context.Context, action *githubactions.Action, env envconfig.Lookuper) int {
	_, shutdown, err := metrics.Setup(ctx, env)
	if err != nil {
		action.Errorf("Action failed with error: %v", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			clog.WarnContextf(ctx, "Failed to flush metrics: %v", err)
		}
	}()

	failed, err := run(ctx, action, env)
	if err != nil {
		action.Errorf("Action failed with error: %v", err)
		return 1
	}
	if failed {
		return 1
	}
	return 0
}

// run performs one enforcement run. failed reports a classified failure,
// already annotated on the job; err is anything unclassified.
func run(ctx context.Context, action *githubactions.Action, env envconfig.Lookuper) (failed bool, err error) {
	cfg, err := enforcer.LoadConfig(ctx, env)
	if err != nil {
		return false, err
	}

	ghctx, err := action.Context()
	if err != nil {
		return false, fmt.Errorf("reading workflow context: %w", err)
	}
	res, err := resourceFromContext(ghctx)
	if err != nil {
		action.Errorf("%v", err)
		return true, nil
	}
	clog.InfoContextf(ctx, "Checking work item links on %s", res)

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken}))
	rest, gql, err := newGitHubClients(ghctx, httpClient)
	if err != nil {
		return false, err
	}
	pr := pullrequest.New(rest, gql, res)

	m := metrics.NewEnforcer(metrics.DefaultMeterName)
	m.SetAttributeEnricher(metrics.PullRequestAttributes(res.Repository(), res.Number))

	opts := []enforcer.Option{
		enforcer.WithServerURL(ghctx.ServerURL),
		enforcer.WithMetrics(m),
	}
	if cfg.HasAzureDevOpsCredentials() {
		opts = append(opts, enforcer.WithWorkItemService(
			azuredevops.NewClient(cfg.AzureDevOpsOrganization, cfg.AzureDevOpsToken),
		))
	}

	comments := commentmanager.New(pr, commentmanager.WithRunURL(runURL(ghctx)))
	result, err := enforcer.New(*cfg, pr, comments, opts...).Run(ctx)
	if err != nil {
		return false, err
	}

	for k, v := range result.Outputs() {
		action.SetOutput(k, v)
	}
	action.AddStepSummary(report.StepSummary(res.Number, result.Rows(), result.Failures))

	if result.Failed() {
		action.Errorf("%s", result.Message())
		return true, nil
	}
	clog.InfoContextf(ctx, "All work item checks passed for %s", res)
	return false, nil
}

func newGitHubClients(ghctx *githubactions.GitHubContext, httpClient *http.Client) (*github.Client, *githubv4.Client, error) {
	rest := github.NewClient(httpClient)
	if ghctx.APIURL == "" || ghctx.APIURL == defaultAPIURL {
		return rest, githubv4.NewClient(httpClient), nil
	}

	rest, err := rest.WithEnterpriseURLs(ghctx.APIURL, ghctx.APIURL)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring GitHub Enterprise API %s: %w", ghctx.APIURL, err)
	}
	return rest, githubv4.NewEnterpriseClient(ghctx.GraphqlURL, httpClient), nil
}
