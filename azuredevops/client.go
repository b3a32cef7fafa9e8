/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package azuredevops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Client provides methods to interact with the Azure DevOps REST API.
type Client struct {
	organization string
	pat          string
	baseURL      string
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the organization URL, which defaults to
// https://dev.azure.com/{organization}.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Azure DevOps client for an organization name or URL.
func NewClient(organization, pat string, opts ...Option) *Client {
	baseURL := organization
	if !strings.HasPrefix(organization, "http") {
		baseURL = "https://dev.azure.com/" + organization
	}

	c := &Client{
		organization: organization,
		pat:          pat,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Organization returns the organization the client was created for.
func (c *Client) Organization() string {
	return c.organization
}

// doRequest performs an authenticated request and decodes a JSON response
// into out when out is non-nil. An empty apiVersion omits the query parameter.
func (c *Client) doRequest(ctx context.Context, method, path, apiVersion string, body any, contentType string, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := c.baseURL + path
	if apiVersion != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		reqURL += sep + "api-version=" + apiVersion
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	// Azure DevOps uses Basic auth with an empty username and the PAT as password.
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+c.pat)))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// Connect verifies that the organization is reachable with the PAT.
func (c *Client) Connect(ctx context.Context) error {
	var data connectionData
	if err := c.doRequest(ctx, http.MethodGet, "/_apis/connectionData", "", nil, "", &data); err != nil {
		return fmt.Errorf("%w to %s: %w", ErrConnection, c.baseURL, err)
	}
	clog.FromContext(ctx).With("user", data.AuthenticatedUser.ProviderDisplayName).Debug("Connected to Azure DevOps")
	return nil
}

// GetWorkItem retrieves a single work item by id, including its relations.
func (c *Client) GetWorkItem(ctx context.Context, id int) (*WorkItem, error) {
	var wi WorkItem
	path := fmt.Sprintf("/_apis/wit/workitems/%d?$expand=relations", id)
	if err := c.doRequest(ctx, http.MethodGet, path, APIVersion, nil, "", &wi); err != nil {
		return nil, fmt.Errorf("getting work item %d: %w", id, err)
	}
	return &wi, nil
}

// WorkItemExists reports whether the work item exists.
// A 404 is reported as (false, nil); any other failure is returned.
func (c *Client) WorkItemExists(ctx context.Context, id int) (bool, error) {
	if _, err := c.GetWorkItem(ctx, id); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdateWorkItem applies JSON-patch operations to a work item.
func (c *Client) UpdateWorkItem(ctx context.Context, id int, ops []PatchOperation) (*WorkItem, error) {
	var wi WorkItem
	path := fmt.Sprintf("/_apis/wit/workitems/%d", id)
	if err := c.doRequest(ctx, http.MethodPatch, path, APIVersion, ops, "application/json-patch+json", &wi); err != nil {
		return nil, fmt.Errorf("updating work item %d: %w", id, err)
	}
	return &wi, nil
}

// ResolveRepositoryID looks up the internal id Azure Boards assigned to the
// GitHub repository connection for repoURL.
func (c *Client) ResolveRepositoryID(ctx context.Context, repoURL string, workItemID int) (string, error) {
	query := dataProviderQuery{
		Context: dataProviderContext{
			Properties: dataProviderProperties{
				WorkItemID: workItemID,
				URLs:       []string{repoURL},
			},
		},
		ContributionIDs: []string{GitHubLinkDataProvider},
	}

	var result dataProviderResult
	if err := c.doRequest(ctx, http.MethodPost, "/_apis/Contribution/dataProviders/query", dataProviderAPIVersion, query, "", &result); err != nil {
		if IsUnauthorized(err) {
			return "", errMissingAuthorization
		}
		return "", fmt.Errorf("querying %s: %w", GitHubLinkDataProvider, err)
	}

	items := result.Data[GitHubLinkDataProvider].ResolvedLinkItems
	if len(items) == 0 || items[0].RepoInternalID == "" {
		return "", errUnresolvedRepoID
	}
	return items[0].RepoInternalID, nil
}

// ArtifactURI builds the Azure Boards artifact URI for a GitHub pull request.
func ArtifactURI(repoInternalID string, pullRequest int) string {
	return fmt.Sprintf("vstfs:///GitHub/PullRequest/%s%%2F%d", repoInternalID, pullRequest)
}

// AddArtifactLink adds an artifact link relation pointing at uri.
func (c *Client) AddArtifactLink(ctx context.Context, workItemID int, uri string) error {
	ops := []PatchOperation{{
		Op:   "add",
		Path: "/relations/-",
		Value: WorkItemRelation{
			Rel: artifactLinkRel,
			URL: uri,
			Attributes: map[string]any{
				"name": artifactLinkName,
			},
		},
	}}
	_, err := c.UpdateWorkItem(ctx, workItemID, ops)
	return err
}

// LinkPullRequest links a GitHub pull request to a work item.
// Connection failures wrap ErrConnection and repository lookup failures wrap
// ErrRepositoryID. A relation that already exists is treated as success.
func (c *Client) LinkPullRequest(ctx context.Context, req LinkRequest) error {
	log := clog.FromContext(ctx).
		With("work_item", req.WorkItemID).
		With("repository", req.Repository).
		With("pull_request", req.PullRequest)

	if err := c.Connect(ctx); err != nil {
		return err
	}

	repoID, err := c.ResolveRepositoryID(ctx, req.RepositoryURL(), req.WorkItemID)
	if err != nil {
		log.With("error", err).Error("Failed to resolve internal repository id")
		return fmt.Errorf("%w: %w", ErrRepositoryID, err)
	}

	if err := c.AddArtifactLink(ctx, req.WorkItemID, ArtifactURI(repoID, req.PullRequest)); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			log.Info("Work item is already linked to the pull request")
			return nil
		}
		return fmt.Errorf("linking pull request #%d to work item %d: %w", req.PullRequest, req.WorkItemID, err)
	}

	log.Info("Linked work item to the pull request")
	return nil
}
