/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package enforcer sequences one link enforcement run over a pull request:
// the commit check, the title/body check, work item validation and linking,
// and the status comments that report them.
package enforcer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"chainguard.dev/workitemlink/azuredevops"
	"chainguard.dev/workitemlink/commentmanager"
	"chainguard.dev/workitemlink/metrics"
	"chainguard.dev/workitemlink/pullrequest"
	"chainguard.dev/workitemlink/workitem"
	"github.com/chainguard-dev/clog"
)

// ErrMissingCredentials is returned when linking is enabled without an Azure
// DevOps token and organization.
var ErrMissingCredentials = errors.New("azure-devops-token and azure-devops-organization are required to link work items to the pull request")

// WorkItemService is the subset of the Azure DevOps client a run needs.
type WorkItemService interface {
	WorkItemExists(ctx context.Context, id int) (bool, error)
	LinkPullRequest(ctx context.Context, req azuredevops.LinkRequest) error
}

var _ WorkItemService = (*azuredevops.Client)(nil)

// LinkError is a failed attempt to link one work item.
type LinkError struct {
	ID          string
	PullRequest int
	Err         error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to link work item AB#%s to pull request #%d: %v", e.ID, e.PullRequest, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// Runner performs a single run against one pull request.
type Runner struct {
	cfg       Config
	pr        pullrequest.Client
	comments  *commentmanager.Manager
	ado       WorkItemService
	serverURL string
	metrics   *metrics.Enforcer
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkItemService sets the Azure DevOps backend. Without one, existence
// validation is skipped and linking fails with ErrMissingCredentials.
func WithWorkItemService(svc WorkItemService) Option {
	return func(r *Runner) {
		r.ado = svc
	}
}

// WithServerURL sets the GitHub web URL used for commit links and artifact
// links. Defaults to https://github.com.
func WithServerURL(u string) Option {
	return func(r *Runner) {
		r.serverURL = u
	}
}

// WithMetrics records run counters on m.
func WithMetrics(m *metrics.Enforcer) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// New creates a Runner for the pull request behind pr.
func New(cfg Config, pr pullrequest.Client, comments *commentmanager.Manager, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		pr:        pr,
		comments:  comments,
		serverURL: "https://github.com",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.NewEnforcer(metrics.DefaultMeterName)
	}
	return r
}

func (r *Runner) number() int {
	return r.pr.Resource().Number
}

func (r *Runner) repoURL() string {
	return r.pr.Resource().RepositoryURL(r.serverURL)
}

// serverHost returns the host of the GitHub server, as Azure DevOps keys
// repositories by host and path.
func (r *Runner) serverHost() string {
	if u, err := url.Parse(r.serverURL); err == nil && u.Host != "" {
		return u.Host
	}
	return strings.Trim(r.serverURL, "/")
}

func (r *Runner) validating(ctx context.Context) bool {
	if !r.cfg.ValidateWorkItemExists {
		return false
	}
	if r.ado == nil {
		clog.WarnContextf(ctx, "Work item validation is enabled but Azure DevOps credentials are missing, skipping")
		return false
	}
	return true
}

// Run executes the enabled checks. Validation failures and classified
// external failures are reported in the Result; any other error is returned.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("pr", r.pr.Resource().String()))
	res := newResult()

	var checker *ExistenceChecker
	if r.validating(ctx) {
		checker = NewExistenceChecker(r.ado, r.metrics)
		res.checker = checker
	}

	commitInvalid := workitem.NewSet()
	if r.cfg.CheckCommits {
		invalid, blocked, err := r.checkCommits(ctx, res, checker)
		if err != nil {
			return res, r.classify(ctx, res, err)
		}
		if blocked {
			clog.InfoContextf(ctx, "Unlinked commits block this run, skipping remaining checks")
			return res, nil
		}
		commitInvalid = invalid
	}

	prInvalid := workitem.NewSet()
	if r.cfg.CheckPullRequest {
		invalid, err := r.checkPullRequest(ctx, res, checker)
		if err != nil {
			return res, r.classify(ctx, res, err)
		}
		prInvalid = invalid
	}

	if checker != nil {
		res.Invalid = commitInvalid.Union(prInvalid)
		if err := r.reconcileInvalid(ctx, res); err != nil {
			return res, r.classify(ctx, res, err)
		}
	}

	return res, nil
}

// checkCommits scans every commit for references. blocked reports that
// unlinked commits failed the run.
func (r *Runner) checkCommits(ctx context.Context, res *Result, checker *ExistenceChecker) (invalid *workitem.Set, blocked bool, err error) {
	log := clog.FromContext(ctx)

	commits, err := r.pr.ListCommits(ctx)
	if err != nil {
		return nil, false, err
	}
	refs, unlinked := workitem.Scan(commits)
	res.Commits = refs
	r.metrics.RecordReferences(ctx, "commits", refs.Len())
	log.Infof("Found %d commits, %d unlinked, %d unique work items", len(commits), len(unlinked), refs.Len())

	if len(unlinked) > 0 && r.cfg.FailIfMissingCommitLink {
		text := commentmanager.CommitsNotLinkedMessage(r.number(), r.repoURL(), unlinked)
		if r.cfg.CommentOnFailure {
			if err := r.upsert(ctx, commentmanager.CommitsNotLinked, text); err != nil {
				return nil, false, err
			}
		}
		res.fail(text)
		return nil, true, nil
	}

	if err := r.resolve(ctx, commentmanager.CommitsNotLinked, commentmanager.CommitsLinkedMessage(r.number())); err != nil {
		return nil, false, err
	}

	invalid = workitem.NewSet()
	if checker != nil {
		invalid = checker.Missing(ctx, refs.References())
	}

	if r.cfg.LinkCommitsToPullRequest && refs.Len() > 0 {
		if r.ado == nil {
			return nil, false, ErrMissingCredentials
		}
		for _, ref := range refs.References() {
			err := r.link(ctx, ref)
			res.Linked[ref.ID] = err == nil
			switch {
			case err == nil:
			case errors.Is(err, azuredevops.ErrConnection):
				return nil, false, err
			default:
				// A failed link fails the run but not the remaining links.
				log.With("workitem", ref.ID).Errorf("Linking failed: %v", err)
				res.fail(err.Error())
			}
		}
	}

	return invalid, false, nil
}

func (r *Runner) link(ctx context.Context, ref workitem.Reference) error {
	id, err := workitem.ParseID(ref.ID)
	if err != nil {
		return &LinkError{ID: ref.ID, PullRequest: r.number(), Err: err}
	}
	res := r.pr.Resource()
	err = r.ado.LinkPullRequest(ctx, azuredevops.LinkRequest{
		WorkItemID:  id,
		Repository:  res.Repository(),
		PullRequest: res.Number,
		ServerURL:   r.serverHost(),
	})
	r.metrics.RecordLink(ctx, err)
	if err != nil {
		return &LinkError{ID: ref.ID, PullRequest: res.Number, Err: err}
	}
	return nil
}

// checkPullRequest requires a reference in the title or body and returns the
// references found there that do not exist.
func (r *Runner) checkPullRequest(ctx context.Context, res *Result, checker *ExistenceChecker) (*workitem.Set, error) {
	details, err := r.pr.Details(ctx)
	if err != nil {
		return nil, err
	}
	ids := workitem.Extract(details.Title + " " + details.Body)
	r.metrics.RecordReferences(ctx, "pull_request", len(ids))

	if len(ids) == 0 {
		text := commentmanager.PullRequestNotLinkedMessage(r.number())
		if r.cfg.CommentOnFailure {
			if err := r.upsert(ctx, commentmanager.PullRequestNotLinked, text); err != nil {
				return nil, err
			}
		}
		res.fail(text)
		return workitem.NewSet(), nil
	}

	if err := r.resolve(ctx, commentmanager.PullRequestNotLinked, commentmanager.PullRequestLinkedMessage(r.number())); err != nil {
		return nil, err
	}

	// Ids already seen in a commit keep their commit origin.
	refs := workitem.NewSet()
	for _, id := range ids {
		if ref, ok := res.Commits.Get(id); ok {
			refs.Add(ref)
			continue
		}
		refs.Add(workitem.Reference{ID: id})
	}
	res.PullRequest = refs

	if checker == nil {
		return workitem.NewSet(), nil
	}
	return checker.Missing(ctx, refs.References()), nil
}

func (r *Runner) reconcileInvalid(ctx context.Context, res *Result) error {
	if res.Invalid.Len() == 0 {
		return r.resolve(ctx, commentmanager.InvalidWorkItems, commentmanager.WorkItemsValidMessage(r.number()))
	}

	text := commentmanager.InvalidWorkItemsMessage(r.number(), r.repoURL(), res.Invalid.References())
	if r.cfg.CommentOnFailure {
		if err := r.upsert(ctx, commentmanager.InvalidWorkItems, text); err != nil {
			return err
		}
	}
	res.fail(text)
	return nil
}

func (r *Runner) upsert(ctx context.Context, cat commentmanager.Category, text string) error {
	action, err := r.comments.Upsert(ctx, cat, text)
	if err != nil {
		return err
	}
	r.metrics.RecordComment(ctx, cat.Name, string(action))
	return nil
}

func (r *Runner) resolve(ctx context.Context, cat commentmanager.Category, text string) error {
	action, err := r.comments.Resolve(ctx, cat, text)
	if err != nil {
		return err
	}
	r.metrics.RecordComment(ctx, cat.Name, string(action))
	return nil
}

// classify records err as a run failure when it is a known external failure
// and returns nil; unknown errors are returned unchanged.
func (r *Runner) classify(ctx context.Context, res *Result, err error) error {
	switch {
	case errors.Is(err, commentmanager.ErrMissingPermission):
		res.fail(commentmanager.ErrMissingPermission.Error())
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, azuredevops.ErrConnection):
		res.fail(err.Error())
	default:
		return err
	}
	clog.FromContext(ctx).Errorf("Run failed: %v", err)
	return nil
}
