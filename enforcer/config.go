/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package enforcer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the action inputs. Keys are the input names from action.yml,
// upper-cased with dashes written as underscores; see InputLookuper.
type Config struct {
	CheckPullRequest         bool `env:"CHECK_PULL_REQUEST,default=false"`
	CheckCommits             bool `env:"CHECK_COMMITS,default=true"`
	FailIfMissingCommitLink  bool `env:"FAIL_IF_MISSING_WORKITEM_COMMIT_LINK,default=true"`
	LinkCommitsToPullRequest bool `env:"LINK_COMMITS_TO_PULL_REQUEST,default=true"`
	CommentOnFailure         bool `env:"COMMENT_ON_FAILURE,default=true"`
	ValidateWorkItemExists   bool `env:"VALIDATE_WORK_ITEM_EXISTS,default=false"`

	AzureDevOpsToken        string `env:"AZURE_DEVOPS_TOKEN"`
	AzureDevOpsOrganization string `env:"AZURE_DEVOPS_ORGANIZATION"`
	GitHubToken             string `env:"GITHUB_TOKEN,required"`
}

// InputLookuper resolves a Config key to the variable GitHub Actions sets
// for the input: INPUT_ followed by the upper-cased input name, dashes kept.
// CHECK_PULL_REQUEST is read from INPUT_CHECK-PULL-REQUEST. Values are
// trimmed and a blank input counts as unset, so the default applies.
func InputLookuper(l envconfig.Lookuper) envconfig.Lookuper {
	return &inputLookuper{next: l}
}

type inputLookuper struct {
	next envconfig.Lookuper
}

func (l *inputLookuper) Lookup(key string) (string, bool) {
	v, ok := l.next.Lookup("INPUT_" + strings.ReplaceAll(key, "_", "-"))
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// LoadConfig reads the action inputs from the runner environment behind l,
// typically envconfig.OsLookuper().
func LoadConfig(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: InputLookuper(l),
	}); err != nil {
		return nil, fmt.Errorf("processing action inputs: %w", err)
	}
	return &cfg, nil
}

// HasAzureDevOpsCredentials reports whether both the token and organization
// are set.
func (c *Config) HasAzureDevOpsCredentials() bool {
	return c.AzureDevOpsToken != "" && c.AzureDevOpsOrganization != ""
}
