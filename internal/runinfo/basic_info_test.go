package runinfo

import "testing"

func TestFromEnvGitHubActions(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_SERVER_URL", "https://github.com")
	t.Setenv("GITHUB_REPOSITORY", "seki/seki")
	t.Setenv("GITHUB_HEAD_REF", "feature/eval-suites")
	t.Setenv("GITHUB_REF", "refs/pull/31/merge")
	t.Setenv("GITHUB_SHA", "deadbeef")
	t.Setenv("GITHUB_WORKFLOW", "CI")
	t.Setenv("GITHUB_JOB", "test")
	t.Setenv("GITHUB_RUN_ID", "123456")
	t.Setenv("GITHUB_RUN_NUMBER", "42")
	t.Setenv("GITHUB_EVENT_NAME", "pull_request")
	t.Setenv("GITHUB_ACTOR", "seki-bot")

	info := FromEnv()
	if info == nil {
		t.Fatalf("expected run info")
	}
	if !info.CI {
		t.Fatalf("expected ci=true")
	}
	if info.Provider != "github_actions" {
		t.Fatalf("provider=%q", info.Provider)
	}
	if info.Repository != "seki/seki" {
		t.Fatalf("repository=%q", info.Repository)
	}
	if info.Branch != "feature/eval-suites" {
		t.Fatalf("branch=%q", info.Branch)
	}
	if info.PullRequest != "31" {
		t.Fatalf("pull_request=%q", info.PullRequest)
	}
	if info.BuildURL != "https://github.com/seki/seki/actions/runs/123456" {
		t.Fatalf("build_url=%q", info.BuildURL)
	}
}

func TestFromEnvSekiOverrides(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("SEKI_CI_PROVIDER", "manual")
	t.Setenv("SEKI_CI_REPOSITORY", "seki/seki")
	t.Setenv("SEKI_CI_BRANCH", "nightly")
	t.Setenv("SEKI_CI_COMMIT", "abc123")
	t.Setenv("SEKI_CI_WORKFLOW", "nightly-evals")
	t.Setenv("SEKI_CI_RUN_ID", "run-77")

	info := FromEnv()
	if info == nil {
		t.Fatalf("expected run info")
	}
	if !info.CI {
		t.Fatalf("expected ci=true when overrides are set")
	}
	if info.Provider != "manual" {
		t.Fatalf("provider=%q", info.Provider)
	}
	if info.Branch != "nightly" {
		t.Fatalf("branch=%q", info.Branch)
	}
	if info.Commit != "abc123" {
		t.Fatalf("commit=%q", info.Commit)
	}
	if info.RunID != "run-77" {
		t.Fatalf("run_id=%q", info.RunID)
	}
}

func TestFromEnvOverridesBeatDetection(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_REPOSITORY", "seki/seki")
	t.Setenv("GITHUB_REF_NAME", "refs/heads/main")
	t.Setenv("SEKI_CI_BRANCH", "release-1.2")

	info := FromEnv()
	if info == nil {
		t.Fatalf("expected run info")
	}
	if info.Branch != "release-1.2" {
		t.Fatalf("branch=%q", info.Branch)
	}
	if info.Provider != "github_actions" {
		t.Fatalf("provider=%q", info.Provider)
	}
}

func TestFromEnvExplicitCIFalse(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("SEKI_CI", "false")
	t.Setenv("SEKI_CI_RUN_ID", "local-7")

	info := FromEnv()
	if info == nil {
		t.Fatalf("expected run info")
	}
	if info.CI {
		t.Fatalf("expected ci=false when SEKI_CI=false")
	}
	if info.RunID != "local-7" {
		t.Fatalf("run_id=%q", info.RunID)
	}
}

func TestFromEnvEmpty(t *testing.T) {
	clearKnownEnv(t)
	if info := FromEnv(); info != nil {
		t.Fatalf("expected nil run info, got %+v", *info)
	}
}

func clearKnownEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CI",
		"CI_PROJECT_PATH",
		"CI_COMMIT_REF_NAME",
		"CI_COMMIT_SHA",
		"CI_PIPELINE_SOURCE",
		"CI_JOB_NAME",
		"CI_PIPELINE_ID",
		"CI_PIPELINE_IID",
		"CI_JOB_URL",
		"GITLAB_CI",
		"GITLAB_USER_LOGIN",
		"BUILDKITE",
		"JENKINS_URL",
		"BUILD_REPOSITORY_NAME",
		"BUILD_SOURCEVERSION",
		"BUILD_URL",
		"BUILD_ID",
		"BUILD_NUMBER",
		"JOB_NAME",
		"BRANCH_NAME",
		"GIT_BRANCH",
		"GIT_COMMIT",
		"GITHUB_ACTIONS",
		"GITHUB_SERVER_URL",
		"GITHUB_REPOSITORY",
		"GITHUB_REF",
		"GITHUB_REF_NAME",
		"GITHUB_HEAD_REF",
		"GITHUB_SHA",
		"GITHUB_WORKFLOW",
		"GITHUB_JOB",
		"GITHUB_RUN_ID",
		"GITHUB_RUN_NUMBER",
		"GITHUB_EVENT_NAME",
		"GITHUB_ACTOR",
		"SEKI_CI",
		"SEKI_CI_PROVIDER",
		"SEKI_CI_REPOSITORY",
		"SEKI_CI_BRANCH",
		"SEKI_CI_COMMIT",
		"SEKI_CI_WORKFLOW",
		"SEKI_CI_JOB",
		"SEKI_CI_RUN_ID",
		"SEKI_CI_RUN_NUMBER",
		"SEKI_CI_EVENT",
		"SEKI_CI_PULL_REQUEST",
		"SEKI_CI_ACTOR",
		"SEKI_CI_BUILD_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
