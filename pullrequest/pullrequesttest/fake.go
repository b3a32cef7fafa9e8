/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pullrequesttest provides an in-memory pullrequest.Client for tests.
package pullrequesttest

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"chainguard.dev/workitemlink/pullrequest"
	"chainguard.dev/workitemlink/workitem"
	"github.com/google/go-github/v84/github"
)

// Fake is an in-memory pull request. The zero value is not usable; use New.
type Fake struct {
	mu sync.Mutex

	res      pullrequest.Resource
	commits  []workitem.Commit
	details  pullrequest.Details
	comments []pullrequest.Comment
	nextID   int64

	// Creates and Updates count successful comment writes.
	Creates int
	Updates int

	// Injected failures.
	CommitsErr error
	DetailsErr error
	WriteErr   error
}

var _ pullrequest.Client = (*Fake)(nil)

// New returns a Fake for res with the given commits.
func New(res pullrequest.Resource, commits ...workitem.Commit) *Fake {
	return &Fake{res: res, commits: commits, nextID: 1000}
}

// SetDetails sets the pull request title and body.
func (f *Fake) SetDetails(title, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = pullrequest.Details{Title: title, Body: body}
}

// SetCommits replaces the commit list, as a force push would.
func (f *Fake) SetCommits(commits ...workitem.Commit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = commits
}

// AddComment seeds a comment, returning its id.
func (f *Fake) AddComment(body string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.comments = append(f.comments, pullrequest.Comment{ID: f.nextID, Body: body})
	return f.nextID
}

// Comments returns a snapshot of the thread.
func (f *Fake) Comments() []pullrequest.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pullrequest.Comment(nil), f.comments...)
}

func (f *Fake) Resource() pullrequest.Resource {
	return f.res
}

func (f *Fake) ListCommits(context.Context) ([]workitem.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitsErr != nil {
		return nil, f.CommitsErr
	}
	return append([]workitem.Commit(nil), f.commits...), nil
}

func (f *Fake) Details(context.Context) (*pullrequest.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DetailsErr != nil {
		return nil, f.DetailsErr
	}
	d := f.details
	return &d, nil
}

func (f *Fake) ListComments(context.Context) ([]pullrequest.Comment, error) {
	return f.Comments(), nil
}

func (f *Fake) CreateComment(_ context.Context, body string) (*pullrequest.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return nil, f.WriteErr
	}
	f.nextID++
	c := pullrequest.Comment{ID: f.nextID, Body: body}
	f.comments = append(f.comments, c)
	f.Creates++
	return &c, nil
}

func (f *Fake) UpdateComment(_ context.Context, id int64, body string) (*pullrequest.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return nil, f.WriteErr
	}
	for i := range f.comments {
		if f.comments[i].ID == id {
			f.comments[i].Body = body
			f.Updates++
			c := f.comments[i]
			return &c, nil
		}
	}
	return nil, errorResponse(http.StatusNotFound, "Not Found")
}

// PermissionError returns the error GitHub produces when the workflow token
// cannot write to the pull request.
func PermissionError() error {
	return errorResponse(http.StatusForbidden, "Resource not accessible by integration")
}

func errorResponse(status int, message string) *github.ErrorResponse {
	return &github.ErrorResponse{
		Response: &http.Response{
			StatusCode: status,
			Request: &http.Request{
				Method: http.MethodPost,
				URL:    &url.URL{Scheme: "https", Host: "api.github.com", Path: "/repos"},
			},
		},
		Message: message,
	}
}
