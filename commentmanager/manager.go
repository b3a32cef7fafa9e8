/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package commentmanager keeps one status comment per category on a pull
// request, editing it in place across runs instead of stacking new ones.
package commentmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/workitemlink/pullrequest"
	"github.com/chainguard-dev/clog"
)

// ErrMissingPermission is returned when GitHub refuses a comment write
// because the workflow token lacks pull request write access.
var ErrMissingPermission = errors.New("unable to comment on the pull request: the workflow token is missing permissions, add `pull-requests: write` to the workflow's permissions block")

// timestampLayout is the footer timestamp format, always rendered in UTC.
const timestampLayout = "2006-01-02 15:04:05"

// Action is what a reconcile call did to the pull request thread.
type Action string

const (
	ActionNone    Action = "none"
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Manager reconciles categorized status comments on a single pull request.
type Manager struct {
	client pullrequest.Client
	runURL string
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRunURL sets the workflow run linked from each comment footer.
func WithRunURL(url string) Option {
	return func(m *Manager) {
		m.runURL = url
	}
}

// WithClock overrides the time source used for footer timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a Manager writing through client.
func New(client pullrequest.Client, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Find returns the first comment on the pull request that belongs to cat,
// or nil if there is none.
func (m *Manager) Find(ctx context.Context, cat Category) (*pullrequest.Comment, error) {
	comments, err := m.client.ListComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	for i := range comments {
		if cat.Matches(comments[i].Body) {
			return &comments[i], nil
		}
	}
	return nil, nil
}

// Upsert records a failure for cat: the existing comment is rewritten with
// text, or a new comment is created if the category has none yet.
func (m *Manager) Upsert(ctx context.Context, cat Category, text string) (Action, error) {
	log := clog.FromContext(ctx).With("category", cat.Name, "pr", m.client.Resource().String())

	existing, err := m.Find(ctx, cat)
	if err != nil {
		return ActionNone, err
	}

	body := m.render(cat, text)
	if existing == nil {
		c, err := m.client.CreateComment(ctx, body)
		if err != nil {
			return ActionNone, m.translate(err)
		}
		log.With("comment", c.ID).Info("Created status comment")
		return ActionCreated, nil
	}

	if _, err := m.client.UpdateComment(ctx, existing.ID, body); err != nil {
		return ActionNone, m.translate(err)
	}
	log.With("comment", existing.ID).Info("Updated status comment")
	return ActionUpdated, nil
}

// Resolve records that cat is passing. An existing comment is rewritten with
// text; nothing is created when the category never failed.
func (m *Manager) Resolve(ctx context.Context, cat Category, text string) (Action, error) {
	existing, err := m.Find(ctx, cat)
	if err != nil {
		return ActionNone, err
	}
	if existing == nil {
		return ActionNone, nil
	}

	if _, err := m.client.UpdateComment(ctx, existing.ID, m.render(cat, text)); err != nil {
		return ActionNone, m.translate(err)
	}
	clog.FromContext(ctx).With("category", cat.Name, "comment", existing.ID).Info("Resolved status comment")
	return ActionUpdated, nil
}

func (m *Manager) render(cat Category, text string) string {
	var sb strings.Builder
	sb.WriteString(cat.Marker)
	sb.WriteString("\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(m.footer())
	return sb.String()
}

func (m *Manager) footer() string {
	stamp := m.now().UTC().Truncate(time.Minute).Format(timestampLayout)
	if m.runURL == "" {
		return fmt.Sprintf("---\n<sub>Last updated: %s UTC</sub>", stamp)
	}
	return fmt.Sprintf("---\n<sub>[View workflow run details](%s) | Last updated: %s UTC</sub>", m.runURL, stamp)
}

func (m *Manager) translate(err error) error {
	if pullrequest.IsPermissionError(err) {
		return fmt.Errorf("%w: %w", ErrMissingPermission, err)
	}
	return err
}
