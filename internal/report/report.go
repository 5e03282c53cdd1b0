// Package report persists harness runs as self-contained artifact
// directories: run metadata, per-case verdicts, the corpus snapshot
// and an optional compressed archive for upload.
package report

import (
	"archive/tar"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"seki/internal/eval"
	"seki/internal/runinfo"
	"seki/internal/util"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Artifact names inside a run directory.
const (
	SummaryName = "summary.json"
	DetailsName = "details.json"
	CasesName   = "cases.json"
	GrammarName = "grammar.txt"

	ArchiveName  = "run.tar.zst"
	ArchiveCodec = "zstd"
)

// Reporter writes run artifacts to disk.
type Reporter struct {
	OutputDir string
}

// Run describes a run directory.
type Run struct {
	ID  string
	Dir string
}

// RunSummary captures the persisted metadata for a run. The summary
// block mirrors the harness output so aggregators can read either
// this file or details.json for the verdict.
type RunSummary struct {
	RunID          string             `json:"run_id"`
	Timestamp      string             `json:"timestamp"`
	Model          string             `json:"model"`
	CasesPath      string             `json:"cases_path"`
	Suites         []SuiteCount       `json:"suites"`
	Summary        eval.Summary       `json:"summary"`
	ArchiveName    string             `json:"archive_name"`
	ArchiveCodec   string             `json:"archive_codec"`
	UploadLocation string             `json:"upload_location"`
	CI             *runinfo.BasicInfo `json:"ci,omitempty"`
}

// SuiteCount is the per-suite slice of a RunSummary, without the
// per-case details that details.json carries.
type SuiteCount struct {
	Name   string `json:"name"`
	Total  int    `json:"total"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
}

// BuildSummary assembles the summary.json payload for a finished run.
func BuildSummary(run Run, rep *eval.Report, model, casesPath string, info *runinfo.BasicInfo) RunSummary {
	suites := make([]SuiteCount, 0, 3)
	for _, s := range rep.Suites() {
		suites = append(suites, SuiteCount{Name: s.Name, Total: s.Total, Passed: s.Passed, Failed: s.Failed})
	}
	return RunSummary{
		RunID:     run.ID,
		Timestamp: time.Now().Format(time.RFC3339),
		Model:     model,
		CasesPath: casesPath,
		Suites:    suites,
		Summary:   rep.Summary,
		CI:        info,
	}
}

// New creates a reporter that writes to outputDir.
func New(outputDir string) *Reporter {
	return &Reporter{OutputDir: outputDir}
}

// NewRun allocates a new run directory. Run IDs are time-ordered so a
// plain directory listing reads chronologically.
func (r *Reporter) NewRun() (Run, error) {
	runID := uuid.New().String()
	if v7, err := uuid.NewV7(); err == nil {
		runID = v7.String()
	}
	dir := filepath.Join(r.OutputDir, "run_"+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Run{}, err
	}
	_ = os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Harness Run\n\n- Run metadata: summary.json\n- Per-case verdicts: details.json\n- Corpus snapshot: cases.json\n- Constraint payload: grammar.txt\n- Replay one case: seki-repro -dir <this directory> -suite grammar_compliance -index 0\n"), 0o644)
	return Run{ID: runID, Dir: dir}, nil
}

// WriteSummary writes summary.json into the run directory.
func (r *Reporter) WriteSummary(run Run, summary RunSummary) error {
	return r.writeJSON(run, SummaryName, summary)
}

// WriteDetails writes the full harness report into details.json.
func (r *Reporter) WriteDetails(run Run, rep *eval.Report) error {
	return r.writeJSON(run, DetailsName, rep)
}

// WriteCases snapshots the corpus the run was judged against.
func (r *Reporter) WriteCases(run Run, corpus *eval.Corpus) error {
	return r.writeJSON(run, CasesName, corpus)
}

func (r *Reporter) writeJSON(run Run, name string, v any) error {
	f, err := os.Create(filepath.Join(run.Dir, name))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "report output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteText writes raw text content into the run directory.
func (r *Reporter) WriteText(run Run, name string, content string) error {
	path := filepath.Join(run.Dir, name)
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// WriteArchive creates a compressed archive of the run directory,
// excluding the archive file itself.
func (r *Reporter) WriteArchive(run Run) (name string, codec string, err error) {
	archivePath := filepath.Join(run.Dir, ArchiveName)
	if removeErr := os.Remove(archivePath); removeErr != nil && !os.IsNotExist(removeErr) {
		return "", "", removeErr
	}
	defer func() {
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()
	file, err := os.Create(archivePath)
	if err != nil {
		return "", "", err
	}
	defer util.CloseWithErr(file, "archive output")

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return "", "", err
	}
	defer func() {
		if closeErr := zw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	tw := tar.NewWriter(zw)
	defer func() {
		if closeErr := tw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	walkErr := filepath.WalkDir(run.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path == archivePath {
			return nil
		}
		rel, err := filepath.Rel(run.Dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, src); err != nil {
			util.CloseWithErr(src, "archive source")
			return err
		}
		util.CloseWithErr(src, "archive source")
		return nil
	})
	if walkErr != nil {
		return "", "", walkErr
	}
	return ArchiveName, ArchiveCodec, nil
}
