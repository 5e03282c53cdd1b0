package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seki/internal/eval"
	"seki/internal/report"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		nameIn string
		want   string
	}{
		{
			name:   "no prefix",
			prefix: "",
			nameIn: "report.json",
			want:   "report.json",
		},
		{
			name:   "trim prefix and name",
			prefix: "/a/b/",
			nameIn: "/report.json",
			want:   "a/b/report.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectKey(tt.prefix, tt.nameIn)
			if got != tt.want {
				t.Fatalf("objectKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseObjectURI(t *testing.T) {
	bucket, prefix, err := parseObjectURI("s3://bucket/a/b")
	if err != nil || bucket != "bucket" || prefix != "a/b/" {
		t.Fatalf("parseObjectURI(s3) = %q, %q, %v", bucket, prefix, err)
	}
	bucket, prefix, err = parseObjectURI("gs://bucket")
	if err != nil || bucket != "bucket" || prefix != "" {
		t.Fatalf("parseObjectURI(gs) = %q, %q, %v", bucket, prefix, err)
	}
	if _, _, err := parseObjectURI("ftp://bucket/a"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	if _, _, err := parseObjectURI("s3://"); err == nil {
		t.Fatal("expected error for missing bucket")
	}
	if _, _, err := parseS3URI("gs://bucket/a"); err == nil {
		t.Fatal("expected parseS3URI to reject gs scheme")
	}
}

func TestDeriveObjectURLs(t *testing.T) {
	summaryURL, archiveURL := deriveObjectURLs("s3://bucket/abc/", "run.tar.zst", "")
	if summaryURL != "" {
		t.Fatalf("unexpected summary url without public base: %q", summaryURL)
	}
	if archiveURL != "" {
		t.Fatalf("unexpected archive url without public base: %q", archiveURL)
	}

	summaryURL, archiveURL = deriveObjectURLs("s3://bucket/abc/", "run.tar.zst", "https://cdn.example.com")
	if summaryURL != "https://cdn.example.com/abc/summary.json" {
		t.Fatalf("unexpected summary url with public base: %q", summaryURL)
	}
	if archiveURL != "https://cdn.example.com/abc/run.tar.zst" {
		t.Fatalf("unexpected archive url with public base: %q", archiveURL)
	}

	summaryURL, archiveURL = deriveObjectURLs("gs://bucket/abc/", "run.tar.zst", "https://cdn.example.com")
	if summaryURL != "https://cdn.example.com/abc/summary.json" {
		t.Fatalf("unexpected summary url with gcs upload location: %q", summaryURL)
	}
	if archiveURL != "https://cdn.example.com/abc/run.tar.zst" {
		t.Fatalf("unexpected archive url with gcs upload location: %q", archiveURL)
	}

	summaryURL, archiveURL = deriveObjectURLs("GS://bucket/abc/", "run.tar.zst", "https://cdn.example.com")
	if summaryURL != "https://cdn.example.com/abc/summary.json" {
		t.Fatalf("unexpected summary url with uppercase scheme: %q", summaryURL)
	}
	if archiveURL != "https://cdn.example.com/abc/run.tar.zst" {
		t.Fatalf("unexpected archive url with uppercase scheme: %q", archiveURL)
	}

	summaryURL, archiveURL = deriveObjectURLs("https://cdn.example.com/abc/", "run.tar.zst", "")
	if summaryURL != "https://cdn.example.com/abc/summary.json" {
		t.Fatalf("unexpected summary url from https upload location: %q", summaryURL)
	}
	if archiveURL != "https://cdn.example.com/abc/run.tar.zst" {
		t.Fatalf("unexpected archive url from https upload location: %q", archiveURL)
	}

	summaryURL, archiveURL = deriveObjectURLs("s3://bucket/abc/", "", "https://cdn.example.com")
	if summaryURL == "" {
		t.Fatal("expected summary url when archive is absent")
	}
	if archiveURL != "" {
		t.Fatalf("unexpected archive url without archive name: %q", archiveURL)
	}
}

func TestReadFileLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "details.json")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	content, truncated, err := readFileLimited(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	if content != "0123" || !truncated {
		t.Fatalf("readFileLimited() = %q, truncated=%v", content, truncated)
	}
	content, truncated, err = readFileLimited(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if content != "0123456789" || truncated {
		t.Fatalf("readFileLimited() = %q, truncated=%v", content, truncated)
	}
}

func TestLoadLocalRuns(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "run_0198")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	summary := report.RunSummary{
		RunID:          "0198",
		Timestamp:      "2026-08-20T10:00:00Z",
		Model:          "gpt-5",
		CasesPath:      "evals/cases.json",
		Suites:         []report.SuiteCount{{Name: eval.SuiteGrammar, Total: 2, Passed: 2}},
		Summary:        eval.Summary{TotalPassed: 2, TotalTests: 2, PassRate: 100, AllPassed: true},
		ArchiveName:    report.ArchiveName,
		ArchiveCodec:   report.ArchiveCodec,
		UploadLocation: "s3://bucket/harness/run_0198/",
	}
	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, report.SummaryName), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, report.DetailsName), []byte(`{"summary":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, report.ArchiveName), []byte("zst"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	runs, err := loadLocalRuns(root, loadOptions{MaxBytes: 1024, ArtifactPublicBaseURL: "https://cdn.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != "0198" || run.Model != "gpt-5" {
		t.Fatalf("unexpected run identity: id=%q model=%q", run.ID, run.Model)
	}
	if run.Dir != dir {
		t.Fatalf("unexpected run dir: %q", run.Dir)
	}
	if !run.Summary.AllPassed || len(run.Suites) != 1 || run.Suites[0].Name != eval.SuiteGrammar {
		t.Fatalf("unexpected run summary: %+v", run.Summary)
	}
	if run.SummaryURL != "https://cdn.example.com/harness/run_0198/summary.json" {
		t.Fatalf("unexpected summary url: %q", run.SummaryURL)
	}
	if run.ArchiveURL != "https://cdn.example.com/harness/run_0198/run.tar.zst" {
		t.Fatalf("unexpected archive url: %q", run.ArchiveURL)
	}
	details := run.Files[report.DetailsName]
	if details.Content != `{"summary":{}}` || details.Truncated {
		t.Fatalf("unexpected details content: %+v", details)
	}
	archive := run.Files[report.ArchiveName]
	if archive.Content != "(binary)" || !archive.Truncated {
		t.Fatalf("unexpected archive placeholder: %+v", archive)
	}
	missing := run.Files[report.CasesName]
	if missing.Content != "" || missing.Name != report.CasesName {
		t.Fatalf("unexpected missing file placeholder: %+v", missing)
	}
}

func TestWriteJSONManifest(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	manifest := Manifest{
		GeneratedAt: "2026-08-20T10:00:00Z",
		Source:      "reports",
		Runs:        []RunEntry{{ID: "0198"}},
	}
	if err := writeJSON(out, manifest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(out, manifestName))
	if err != nil {
		t.Fatal(err)
	}
	var decoded Manifest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Source != "reports" || len(decoded.Runs) != 1 || decoded.Runs[0].ID != "0198" {
		t.Fatalf("unexpected manifest: %+v", decoded)
	}
	if !strings.Contains(string(data), `"generated_at": "2026-08-20T10:00:00Z"`) {
		t.Fatalf("manifest not indented as expected: %s", data)
	}
}
