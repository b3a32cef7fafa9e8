/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package commentmanager

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chainguard.dev/workitemlink/pullrequest"
	"chainguard.dev/workitemlink/pullrequest/pullrequesttest"
	"chainguard.dev/workitemlink/workitem"
	"github.com/stretchr/testify/require"
)

const (
	testRunURL  = "https://github.com/octo-org/octo-repo/actions/runs/123"
	testRepoURL = "https://github.com/octo-org/octo-repo"
)

var testPR = pullrequest.Resource{Owner: "octo-org", Repo: "octo-repo", Number: 42}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("PDT", -7*60*60))
}

func newManager(fake *pullrequesttest.Fake) *Manager {
	return New(fake, WithRunURL(testRunURL), WithClock(fixedClock))
}

func commits(n int) []workitem.Commit {
	out := make([]workitem.Commit, 0, n)
	for i := range n {
		sha := strings.Repeat(string(rune('a'+i)), 40)
		out = append(out, workitem.Commit{SHA: sha, Message: "chore: change " + string(rune('A'+i)) + "\n\nbody"})
	}
	return out
}

func bullets(body string) int {
	n := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "- ") {
			n++
		}
	}
	return n
}

func TestCategoryMatches(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		body string
		want bool
	}{{
		name: "marker",
		cat:  CommitsNotLinked,
		body: CommitsNotLinked.Marker + "\nanything",
		want: true,
	}, {
		name: "other marker",
		cat:  CommitsNotLinked,
		body: InvalidWorkItems.Marker + "\nanything",
		want: false,
	}, {
		name: "legacy commits wording",
		cat:  CommitsNotLinked,
		body: "There is at least one commit in pull request #1 that is not linked.",
		want: true,
	}, {
		name: "legacy invalid wording",
		cat:  InvalidWorkItems,
		body: "AB#5 that does not exist in Azure DevOps",
		want: true,
	}, {
		name: "legacy pr wording",
		cat:  PullRequestNotLinked,
		body: "Pull request #1 is not linked to any work item(s).",
		want: true,
	}, {
		name: "unrelated comment",
		cat:  PullRequestNotLinked,
		body: "LGTM",
		want: false,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cat.Matches(tt.body); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategoriesDoNotOverlap(t *testing.T) {
	rendered := []struct {
		cat  Category
		text string
	}{
		{CommitsNotLinked, CommitsNotLinkedMessage(42, testRepoURL, commits(3))},
		{CommitsNotLinked, CommitsNotLinkedMessage(42, testRepoURL, commits(1))},
		{InvalidWorkItems, InvalidWorkItemsMessage(42, testRepoURL, []workitem.Reference{{ID: "1"}, {ID: "2"}})},
		{PullRequestNotLinked, PullRequestNotLinkedMessage(42)},
	}
	all := []Category{CommitsNotLinked, InvalidWorkItems, PullRequestNotLinked}
	for _, r := range rendered {
		for _, cat := range all {
			if cat.Name == r.cat.Name {
				continue
			}
			if cat.Matches(r.text) {
				t.Errorf("%s message matches category %s", r.cat, cat)
			}
		}
	}
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	fake := pullrequesttest.New(testPR)
	fake.AddComment("LGTM")
	m := newManager(fake)

	text := CommitsNotLinkedMessage(42, testRepoURL, commits(1))
	action, err := m.Upsert(ctx, CommitsNotLinked, text)
	require.NoError(t, err)
	require.Equal(t, ActionCreated, action)

	action, err = m.Upsert(ctx, CommitsNotLinked, text)
	require.NoError(t, err)
	require.Equal(t, ActionUpdated, action)

	comments := fake.Comments()
	require.Len(t, comments, 2, "second run must edit, not append")
	require.Equal(t, 1, fake.Creates)
	require.Equal(t, 1, fake.Updates)

	body := comments[1].Body
	require.True(t, strings.HasPrefix(body, CommitsNotLinked.Marker+"\n"))
	require.Contains(t, body, text)
	require.Contains(t, body, "\n---\n")
	require.Contains(t, body, "[View workflow run details]("+testRunURL+")")
	require.Contains(t, body, "Last updated: 2026-03-14 16:26:00 UTC")
}

func TestUpsertMorphsAcrossRuns(t *testing.T) {
	ctx := context.Background()
	fake := pullrequesttest.New(testPR)
	m := newManager(fake)

	_, err := m.Upsert(ctx, CommitsNotLinked, CommitsNotLinkedMessage(42, testRepoURL, commits(3)))
	require.NoError(t, err)
	first := fake.Comments()[0]
	require.Contains(t, first.Body, "View all 3 commits missing work items")
	require.Equal(t, 3, bullets(first.Body))

	_, err = m.Upsert(ctx, CommitsNotLinked, CommitsNotLinkedMessage(42, testRepoURL, commits(1)))
	require.NoError(t, err)

	comments := fake.Comments()
	require.Len(t, comments, 1)
	require.Equal(t, first.ID, comments[0].ID)
	require.Contains(t, comments[0].Body, "There is 1 commit in pull request #42")
	require.NotContains(t, comments[0].Body, "<details>")
	require.NotContains(t, comments[0].Body, "View all")
}

func TestUpsertAdoptsLegacyComment(t *testing.T) {
	ctx := context.Background()
	fake := pullrequesttest.New(testPR)
	legacy := fake.AddComment("Pull request #42 is not linked to any work item(s). Please fix.")
	m := newManager(fake)

	action, err := m.Upsert(ctx, PullRequestNotLinked, PullRequestNotLinkedMessage(42))
	require.NoError(t, err)
	require.Equal(t, ActionUpdated, action)

	comments := fake.Comments()
	require.Len(t, comments, 1)
	require.Equal(t, legacy, comments[0].ID)
	require.True(t, strings.HasPrefix(comments[0].Body, PullRequestNotLinked.Marker))
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("no prior failure", func(t *testing.T) {
		fake := pullrequesttest.New(testPR)
		action, err := newManager(fake).Resolve(ctx, PullRequestNotLinked, PullRequestLinkedMessage(42))
		require.NoError(t, err)
		require.Equal(t, ActionNone, action)
		require.Empty(t, fake.Comments())
	})

	t.Run("flips existing failure", func(t *testing.T) {
		fake := pullrequesttest.New(testPR)
		m := newManager(fake)
		_, err := m.Upsert(ctx, PullRequestNotLinked, PullRequestNotLinkedMessage(42))
		require.NoError(t, err)
		id := fake.Comments()[0].ID

		action, err := m.Resolve(ctx, PullRequestNotLinked, PullRequestLinkedMessage(42))
		require.NoError(t, err)
		require.Equal(t, ActionUpdated, action)

		comments := fake.Comments()
		require.Len(t, comments, 1)
		require.Equal(t, id, comments[0].ID)
		require.Contains(t, comments[0].Body, "✅ Pull request #42 is now linked to a work item.")
		require.True(t, PullRequestNotLinked.Matches(comments[0].Body), "resolved comment keeps its marker")
	})
}

func TestFooterWithoutRunURL(t *testing.T) {
	fake := pullrequesttest.New(testPR)
	m := New(fake, WithClock(fixedClock))
	_, err := m.Upsert(context.Background(), PullRequestNotLinked, PullRequestNotLinkedMessage(42))
	require.NoError(t, err)

	body := fake.Comments()[0].Body
	require.Contains(t, body, "<sub>Last updated: 2026-03-14 16:26:00 UTC</sub>")
	require.NotContains(t, body, "](")
}

func TestPermissionErrorTranslated(t *testing.T) {
	fake := pullrequesttest.New(testPR)
	fake.WriteErr = pullrequesttest.PermissionError()

	_, err := newManager(fake).Upsert(context.Background(), CommitsNotLinked, "text")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingPermission), "got %v", err)
	require.Contains(t, err.Error(), "pull-requests: write")
}

func TestOtherWriteErrorsPassThrough(t *testing.T) {
	fake := pullrequesttest.New(testPR)
	boom := errors.New("boom")
	fake.WriteErr = boom

	_, err := newManager(fake).Upsert(context.Background(), CommitsNotLinked, "text")
	require.ErrorIs(t, err, boom)
	require.False(t, errors.Is(err, ErrMissingPermission))
}
