/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pullrequest provides access to the pieces of a GitHub pull request
// the link checker reads and writes: its commits, title/body, and comments.
package pullrequest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chainguard.dev/workitemlink/workitem"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
)

// Resource identifies a pull request.
type Resource struct {
	Owner  string
	Repo   string
	Number int
}

// Repository returns the "owner/repo" form of the repository.
func (r Resource) Repository() string {
	return r.Owner + "/" + r.Repo
}

// RepositoryURL returns the web URL of the repository on serverURL.
func (r Resource) RepositoryURL(serverURL string) string {
	return strings.TrimSuffix(serverURL, "/") + "/" + r.Repository()
}

func (r Resource) String() string {
	return fmt.Sprintf("%s#%d", r.Repository(), r.Number)
}

// Details holds the pull request title and body.
type Details struct {
	Title string
	Body  string
}

// Comment is an issue comment on the pull request.
type Comment struct {
	ID   int64
	Body string
}

// Client reads and writes a single pull request.
type Client interface {
	Resource() Resource
	ListCommits(ctx context.Context) ([]workitem.Commit, error)
	Details(ctx context.Context) (*Details, error)
	ListComments(ctx context.Context) ([]Comment, error)
	CreateComment(ctx context.Context, body string) (*Comment, error)
	UpdateComment(ctx context.Context, id int64, body string) (*Comment, error)
}

// GitHub implements Client on the GitHub REST and GraphQL APIs.
type GitHub struct {
	rest *github.Client
	gql  *githubv4.Client
	res  Resource
}

var _ Client = (*GitHub)(nil)

// New returns a Client for res. When gql is nil a GraphQL client is derived
// from the REST client's HTTP client.
func New(rest *github.Client, gql *githubv4.Client, res Resource) *GitHub {
	if gql == nil {
		gql = githubv4.NewClient(rest.Client())
	}
	return &GitHub{rest: rest, gql: gql, res: res}
}

// Resource returns the pull request this client operates on.
func (g *GitHub) Resource() Resource {
	return g.res
}

// ListCommits returns every commit on the pull request, oldest first.
func (g *GitHub) ListCommits(ctx context.Context) ([]workitem.Commit, error) {
	opts := &github.ListOptions{PerPage: 100}
	var commits []workitem.Commit
	for {
		page, resp, err := g.rest.PullRequests.ListCommits(ctx, g.res.Owner, g.res.Repo, g.res.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing commits for %s: %w", g.res, err)
		}
		for _, c := range page {
			commits = append(commits, workitem.Commit{
				SHA:     c.GetSHA(),
				Message: c.GetCommit().GetMessage(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

// Details fetches the pull request title and body.
func (g *GitHub) Details(ctx context.Context) (*Details, error) {
	var query struct {
		Repository struct {
			PullRequest struct {
				Title string
				Body  string
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]any{
		"owner":  githubv4.String(g.res.Owner),
		"repo":   githubv4.String(g.res.Repo),
		"number": githubv4.Int(g.res.Number),
	}

	if err := g.gql.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying pull request %s: %w", g.res, err)
	}

	return &Details{
		Title: query.Repository.PullRequest.Title,
		Body:  query.Repository.PullRequest.Body,
	}, nil
}

// ListComments returns every issue comment on the pull request, oldest first.
func (g *GitHub) ListComments(ctx context.Context) ([]Comment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var comments []Comment
	for {
		page, resp, err := g.rest.Issues.ListComments(ctx, g.res.Owner, g.res.Repo, g.res.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s: %w", g.res, err)
		}
		for _, c := range page {
			comments = append(comments, Comment{ID: c.GetID(), Body: c.GetBody()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

// CreateComment posts a new comment on the pull request.
func (g *GitHub) CreateComment(ctx context.Context, body string) (*Comment, error) {
	c, _, err := g.rest.Issues.CreateComment(ctx, g.res.Owner, g.res.Repo, g.res.Number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("creating comment on %s: %w", g.res, err)
	}
	return &Comment{ID: c.GetID(), Body: c.GetBody()}, nil
}

// UpdateComment replaces the body of an existing comment.
func (g *GitHub) UpdateComment(ctx context.Context, id int64, body string) (*Comment, error) {
	c, _, err := g.rest.Issues.EditComment(ctx, g.res.Owner, g.res.Repo, id, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("updating comment %d on %s: %w", id, g.res, err)
	}
	return &Comment{ID: c.GetID(), Body: c.GetBody()}, nil
}

// notAccessible is the message GitHub returns when the workflow token lacks
// a permission.
const notAccessible = "Resource not accessible by integration"

// IsPermissionError reports whether err is GitHub rejecting a write because
// the token is missing a permission.
func IsPermissionError(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if ghErr.Response == nil || ghErr.Response.StatusCode != http.StatusForbidden {
		return false
	}
	return strings.Contains(ghErr.Message, notAccessible)
}
