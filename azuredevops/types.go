/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package azuredevops

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// API constants
const (
	DefaultTimeout = 30 * time.Second
	APIVersion     = "7.0"

	// dataProviderAPIVersion is the version accepted by the contribution
	// data provider endpoint, which is only available as a preview.
	dataProviderAPIVersion = "7.1-preview.1"

	// GitHubLinkDataProvider resolves GitHub artifacts to Azure Boards
	// repository connections.
	GitHubLinkDataProvider = "ms.vss-work-web.github-link-data-provider"

	artifactLinkRel  = "ArtifactLink"
	artifactLinkName = "GitHub Pull Request"
)

var (
	// ErrConnection is returned when a work item tracking session cannot be
	// established with the organization.
	ErrConnection = errors.New("failed connection")

	// ErrRepositoryID is returned when the internal id of the GitHub
	// repository connection cannot be resolved.
	ErrRepositoryID = errors.New("failed to retrieve internal repo id")

	errMissingAuthorization = errors.New("missing authorization, the PAT needs full access")
	errUnresolvedRepoID     = errors.New("internal repo id could not be resolved")
)

// APIError is a non-2xx response from Azure DevOps.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from Azure DevOps.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 from Azure DevOps.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == code
	}
	return false
}

// WorkItem is the subset of an Azure DevOps work item the client reads.
type WorkItem struct {
	ID        int                `json:"id"`
	Rev       int                `json:"rev"`
	URL       string             `json:"url"`
	Relations []WorkItemRelation `json:"relations,omitempty"`
}

// WorkItemRelation represents a link from a work item to another resource.
type WorkItemRelation struct {
	Rel        string         `json:"rel"`
	URL        string         `json:"url"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// PatchOperation is a JSON-patch operation applied to a work item.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// LinkRequest describes a pull request to link to a work item.
type LinkRequest struct {
	// WorkItemID is the numeric work item id.
	WorkItemID int
	// Repository is the GitHub repository in "owner/name" form.
	Repository string
	// PullRequest is the pull request number.
	PullRequest int
	// ServerURL is the GitHub server hostname, e.g. "github.com".
	ServerURL string
}

// RepositoryURL returns the web URL of the GitHub repository.
func (r LinkRequest) RepositoryURL() string {
	return fmt.Sprintf("https://%s/%s", r.ServerURL, r.Repository)
}

// dataProviderQuery is the body of a contribution data provider request.
type dataProviderQuery struct {
	Context         dataProviderContext `json:"context"`
	ContributionIDs []string            `json:"contributionIds"`
}

type dataProviderContext struct {
	Properties dataProviderProperties `json:"properties"`
}

type dataProviderProperties struct {
	WorkItemID int      `json:"workItemId"`
	URLs       []string `json:"urls"`
}

// dataProviderResult is the response of a contribution data provider request.
type dataProviderResult struct {
	Data map[string]githubLinkData `json:"data"`
}

type githubLinkData struct {
	ResolvedLinkItems []resolvedLinkItem `json:"resolvedLinkItems"`
}

type resolvedLinkItem struct {
	RepoInternalID string `json:"repoInternalId"`
}

// connectionData is the response of the connection data endpoint.
type connectionData struct {
	AuthenticatedUser struct {
		ID                  string `json:"id"`
		ProviderDisplayName string `json:"providerDisplayName"`
	} `json:"authenticatedUser"`
}
