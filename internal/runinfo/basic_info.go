// Package runinfo collects CI metadata recorded into run summaries.
package runinfo

import (
	"os"
	"regexp"
	"strings"
)

var githubPullRefPattern = regexp.MustCompile(`^refs/pull/([0-9]+)/`)

// BasicInfo captures CI/run metadata for logs and eval reports.
type BasicInfo struct {
	CI          bool   `json:"ci,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Repository  string `json:"repository,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Workflow    string `json:"workflow,omitempty"`
	Job         string `json:"job,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	RunNumber   string `json:"run_number,omitempty"`
	Event       string `json:"event,omitempty"`
	PullRequest string `json:"pull_request,omitempty"`
	Actor       string `json:"actor,omitempty"`
	BuildURL    string `json:"build_url,omitempty"`
}

// FromEnv builds run metadata from environment variables.
// Explicit SEKI_CI_* values take precedence over provider detection.
func FromEnv() *BasicInfo {
	info := detect()
	applyOverrides(&info)
	normalize(&info)
	if info == (BasicInfo{}) {
		return nil
	}
	return &info
}

func detect() BasicInfo {
	if isTruthy(env("GITHUB_ACTIONS")) {
		return detectGitHub()
	}

	var info BasicInfo
	switch {
	case isTruthy(env("GITLAB_CI")):
		info.CI = true
		info.Provider = "gitlab_ci"
	case isTruthy(env("BUILDKITE")):
		info.CI = true
		info.Provider = "buildkite"
	case env("JENKINS_URL") != "":
		info.CI = true
		info.Provider = "jenkins"
	}
	if isTruthy(env("CI")) {
		info.CI = true
	}

	info.Repository = envFirst("CI_PROJECT_PATH", "BUILD_REPOSITORY_NAME")
	info.Branch = envFirst("CI_COMMIT_REF_NAME", "BRANCH_NAME", "GIT_BRANCH")
	info.Commit = envFirst("CI_COMMIT_SHA", "GIT_COMMIT", "BUILD_SOURCEVERSION")
	info.Job = envFirst("CI_JOB_NAME", "JOB_NAME")
	info.RunID = envFirst("CI_PIPELINE_ID", "BUILD_ID")
	info.RunNumber = envFirst("CI_PIPELINE_IID", "BUILD_NUMBER")
	info.Event = env("CI_PIPELINE_SOURCE")
	info.Actor = env("GITLAB_USER_LOGIN")
	info.BuildURL = envFirst("CI_JOB_URL", "BUILD_URL")
	return info
}

func detectGitHub() BasicInfo {
	info := BasicInfo{
		CI:          true,
		Provider:    "github_actions",
		Repository:  env("GITHUB_REPOSITORY"),
		Branch:      envFirst("GITHUB_HEAD_REF", "GITHUB_REF_NAME"),
		Commit:      env("GITHUB_SHA"),
		Workflow:    env("GITHUB_WORKFLOW"),
		Job:         env("GITHUB_JOB"),
		RunID:       env("GITHUB_RUN_ID"),
		RunNumber:   env("GITHUB_RUN_NUMBER"),
		Event:       env("GITHUB_EVENT_NAME"),
		Actor:       env("GITHUB_ACTOR"),
		PullRequest: githubPullRequestFromRef(env("GITHUB_REF")),
	}
	server := env("GITHUB_SERVER_URL")
	if server == "" {
		server = "https://github.com"
	}
	if info.Repository != "" && info.RunID != "" {
		info.BuildURL = strings.TrimRight(server, "/") + "/" + info.Repository + "/actions/runs/" + info.RunID
	}
	return info
}

func applyOverrides(info *BasicInfo) {
	explicit := false
	if v, ok := lookupTrimmed("SEKI_CI"); ok && v != "" {
		info.CI = isTruthy(v)
	}
	for _, f := range []struct {
		dst *string
		key string
	}{
		{&info.Provider, "SEKI_CI_PROVIDER"},
		{&info.Repository, "SEKI_CI_REPOSITORY"},
		{&info.Branch, "SEKI_CI_BRANCH"},
		{&info.Commit, "SEKI_CI_COMMIT"},
		{&info.Workflow, "SEKI_CI_WORKFLOW"},
		{&info.Job, "SEKI_CI_JOB"},
		{&info.RunID, "SEKI_CI_RUN_ID"},
		{&info.RunNumber, "SEKI_CI_RUN_NUMBER"},
		{&info.Event, "SEKI_CI_EVENT"},
		{&info.PullRequest, "SEKI_CI_PULL_REQUEST"},
		{&info.Actor, "SEKI_CI_ACTOR"},
		{&info.BuildURL, "SEKI_CI_BUILD_URL"},
	} {
		if v, ok := lookupTrimmed(f.key); ok && v != "" {
			*f.dst = v
			explicit = true
		}
	}
	if explicit && !info.CI && !ciExplicitFalse() {
		info.CI = true
	}
}

func normalize(info *BasicInfo) {
	info.Provider = strings.ToLower(strings.TrimSpace(info.Provider))
	info.Branch = normalizeBranch(info.Branch)
	for _, f := range []*string{
		&info.Repository, &info.Commit, &info.Workflow, &info.Job,
		&info.RunID, &info.RunNumber, &info.Event, &info.PullRequest,
		&info.Actor, &info.BuildURL,
	} {
		*f = strings.TrimSpace(*f)
	}
	if !info.CI && (info.Provider != "" || info.Repository != "" || info.RunID != "" || info.Commit != "") && !ciExplicitFalse() {
		info.CI = true
	}
	if info.CI && info.Provider == "" {
		info.Provider = "generic"
	}
}

// ciExplicitFalse reports whether SEKI_CI was set to a falsy value,
// which suppresses CI promotion from other populated fields.
func ciExplicitFalse() bool {
	v, ok := lookupTrimmed("SEKI_CI")
	return ok && v != "" && !isTruthy(v)
}

func normalizeBranch(branch string) string {
	branch = strings.TrimSpace(branch)
	branch = strings.TrimPrefix(branch, "refs/heads/")
	branch = strings.TrimPrefix(branch, "origin/")
	return branch
}

func githubPullRequestFromRef(ref string) string {
	m := githubPullRefPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := env(key); value != "" {
			return value
		}
	}
	return ""
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
