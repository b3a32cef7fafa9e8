/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package azuredevops

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testPAT = "test-pat"

// fakeOrg is an httptest-backed Azure DevOps organization.
type fakeOrg struct {
	t *testing.T

	workItems     map[int]bool
	repoID        string
	queryStatus   int
	patchStatus   int
	patchBody     string
	connectStatus int

	queries []dataProviderQuery
	patches map[int][]PatchOperation
	calls   []string
}

func newFakeOrg(t *testing.T) (*fakeOrg, *Client) {
	t.Helper()
	f := &fakeOrg{
		t:         t,
		workItems: map[int]bool{},
		repoID:    "repo-internal-id",
		patches:   map[int][]PatchOperation{},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, NewClient("testorg", testPAT, WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
}

func (f *fakeOrg) serve(w http.ResponseWriter, r *http.Request) {
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+testPAT))
	if got := r.Header.Get("Authorization"); got != want {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/_apis/connectionData":
		if f.connectStatus != 0 {
			http.Error(w, "connection refused by test", f.connectStatus)
			return
		}
		_, _ = io.WriteString(w, `{"authenticatedUser":{"id":"u1","providerDisplayName":"Test User"}}`)

	case r.URL.Path == "/_apis/Contribution/dataProviders/query":
		if got := r.URL.Query().Get("api-version"); got != dataProviderAPIVersion {
			f.t.Errorf("data provider api-version = %q, want %q", got, dataProviderAPIVersion)
		}
		var q dataProviderQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			f.t.Errorf("decoding query: %v", err)
		}
		f.queries = append(f.queries, q)
		if f.queryStatus != 0 {
			http.Error(w, "query failed", f.queryStatus)
			return
		}
		items := "[]"
		if f.repoID != "" {
			items = fmt.Sprintf(`[{"repoInternalId":%q}]`, f.repoID)
		}
		fmt.Fprintf(w, `{"data":{%q:{"resolvedLinkItems":%s}}}`, GitHubLinkDataProvider, items)

	case strings.HasPrefix(r.URL.Path, "/_apis/wit/workitems/"):
		var id int
		if _, err := fmt.Sscanf(strings.TrimPrefix(r.URL.Path, "/_apis/wit/workitems/"), "%d", &id); err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		if got := r.URL.Query().Get("api-version"); got != APIVersion {
			f.t.Errorf("api-version = %q, want %q", got, APIVersion)
		}
		if !f.workItems[id] {
			http.Error(w, fmt.Sprintf(`{"message":"TF401232: Work item %d does not exist."}`, id), http.StatusNotFound)
			return
		}
		if r.Method == http.MethodPatch {
			if got := r.Header.Get("Content-Type"); got != "application/json-patch+json" {
				f.t.Errorf("Content-Type = %q, want json-patch", got)
			}
			var ops []PatchOperation
			if err := json.NewDecoder(r.Body).Decode(&ops); err != nil {
				f.t.Errorf("decoding patch: %v", err)
			}
			f.patches[id] = append(f.patches[id], ops...)
			if f.patchStatus != 0 {
				http.Error(w, f.patchBody, f.patchStatus)
				return
			}
		}
		fmt.Fprintf(w, `{"id":%d,"rev":1}`, id)

	default:
		http.NotFound(w, r)
	}
}

func TestNewClientBaseURL(t *testing.T) {
	tests := []struct {
		org  string
		want string
	}{
		{org: "my-org", want: "https://dev.azure.com/my-org"},
		{org: "https://dev.azure.com/my-org/", want: "https://dev.azure.com/my-org"},
		{org: "https://my-org.visualstudio.com", want: "https://my-org.visualstudio.com"},
	}
	for _, tt := range tests {
		c := NewClient(tt.org, "pat")
		if c.baseURL != tt.want {
			t.Errorf("NewClient(%q).baseURL = %q, want %q", tt.org, c.baseURL, tt.want)
		}
		if c.Organization() != tt.org {
			t.Errorf("Organization() = %q, want %q", c.Organization(), tt.org)
		}
	}
}

func TestWorkItemExists(t *testing.T) {
	f, c := newFakeOrg(t)
	f.workItems[12345] = true

	ok, err := c.WorkItemExists(context.Background(), 12345)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.WorkItemExists(context.Background(), 99999)
	require.NoError(t, err, "a 404 is not an error")
	require.False(t, ok)
}

func TestWorkItemExistsPropagatesOtherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := NewClient("testorg", testPAT, WithBaseURL(srv.URL))

	ok, err := c.WorkItemExists(context.Background(), 1)
	if ok {
		t.Error("WorkItemExists() = true on server error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("WorkItemExists() error = %v, want APIError 500", err)
	}
}

func TestLinkPullRequest(t *testing.T) {
	f, c := newFakeOrg(t)
	f.workItems[12345] = true

	err := c.LinkPullRequest(context.Background(), LinkRequest{
		WorkItemID:  12345,
		Repository:  "octo-org/octo-repo",
		PullRequest: 42,
		ServerURL:   "github.com",
	})
	require.NoError(t, err)

	wantQuery := []dataProviderQuery{{
		Context: dataProviderContext{
			Properties: dataProviderProperties{
				WorkItemID: 12345,
				URLs:       []string{"https://github.com/octo-org/octo-repo"},
			},
		},
		ContributionIDs: []string{GitHubLinkDataProvider},
	}}
	if diff := cmp.Diff(wantQuery, f.queries); diff != "" {
		t.Errorf("data provider query mismatch (-want +got):\n%s", diff)
	}

	ops := f.patches[12345]
	require.Len(t, ops, 1)
	if ops[0].Op != "add" || ops[0].Path != "/relations/-" {
		t.Errorf("patch op = %s %s, want add /relations/-", ops[0].Op, ops[0].Path)
	}
	rel, ok := ops[0].Value.(map[string]any)
	require.True(t, ok, "relation value should be an object, got %T", ops[0].Value)
	if rel["rel"] != "ArtifactLink" {
		t.Errorf("rel = %v, want ArtifactLink", rel["rel"])
	}
	if rel["url"] != "vstfs:///GitHub/PullRequest/repo-internal-id%2F42" {
		t.Errorf("url = %v", rel["url"])
	}

	wantCalls := []string{
		"GET /_apis/connectionData",
		"POST /_apis/Contribution/dataProviders/query",
		"PATCH /_apis/wit/workitems/12345",
	}
	if diff := cmp.Diff(wantCalls, f.calls); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkPullRequestAlreadyExists(t *testing.T) {
	f, c := newFakeOrg(t)
	f.workItems[7] = true
	f.patchStatus = http.StatusBadRequest
	f.patchBody = `{"message":"Relation already exists."}`

	err := c.LinkPullRequest(context.Background(), LinkRequest{
		WorkItemID: 7, Repository: "o/r", PullRequest: 1, ServerURL: "github.com",
	})
	if err != nil {
		t.Errorf("LinkPullRequest() error = %v, want nil for existing relation", err)
	}
}

func TestLinkPullRequestFailures(t *testing.T) {
	req := LinkRequest{WorkItemID: 7, Repository: "o/r", PullRequest: 1, ServerURL: "github.com"}

	tests := []struct {
		name     string
		setup    func(*fakeOrg)
		wantIs   error
		contains string
	}{{
		name:     "connection failure",
		setup:    func(f *fakeOrg) { f.connectStatus = http.StatusServiceUnavailable },
		wantIs:   ErrConnection,
		contains: "failed connection",
	}, {
		name:     "unauthorized data provider query",
		setup:    func(f *fakeOrg) { f.queryStatus = http.StatusUnauthorized },
		wantIs:   ErrRepositoryID,
		contains: "PAT needs full access",
	}, {
		name:     "unresolved repository id",
		setup:    func(f *fakeOrg) { f.repoID = "" },
		wantIs:   ErrRepositoryID,
		contains: "could not be resolved",
	}, {
		name: "patch rejected",
		setup: func(f *fakeOrg) {
			f.patchStatus = http.StatusBadRequest
			f.patchBody = "invalid relation"
		},
		contains: "invalid relation",
	}, {
		name:     "work item missing",
		setup:    func(f *fakeOrg) { delete(f.workItems, 7) },
		contains: "404",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFakeOrg(t)
			f.workItems[7] = true
			tt.setup(f)

			err := c.LinkPullRequest(context.Background(), req)
			if err == nil {
				t.Fatal("LinkPullRequest() error = nil")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestRepositoryIDFailuresShareMessage(t *testing.T) {
	for _, err := range []error{errMissingAuthorization, errUnresolvedRepoID} {
		wrapped := fmt.Errorf("%w: %w", ErrRepositoryID, err)
		if !strings.HasPrefix(wrapped.Error(), "failed to retrieve internal repo id") {
			t.Errorf("wrapped error %q should start with the repo id failure message", wrapped)
		}
	}
}

func TestArtifactURI(t *testing.T) {
	if got, want := ArtifactURI("abc-123", 42), "vstfs:///GitHub/PullRequest/abc-123%2F42"; got != want {
		t.Errorf("ArtifactURI() = %q, want %q", got, want)
	}
}
