package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"seki/internal/config"
	"seki/internal/eval"
	"seki/internal/grammar"
	"seki/internal/openai"
	"seki/internal/query"
	"seki/internal/report"
	"seki/internal/uploader"
	"seki/internal/util"
	"seki/internal/validator"
	"seki/internal/warehouse"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	casesPath := flag.String("cases", "", "override the case corpus path")
	outputDir := flag.String("output", "", "override the run artifact directory")
	concurrency := flag.Int("concurrency", 0, "override suite concurrency")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		util.Detailf("no .env file loaded: %v", err)
	}

	cfg := loadConfig(*configPath)
	util.SetVerbose(cfg.Logging.Verbose)
	if *casesPath != "" {
		cfg.Eval.CasesPath = *casesPath
	}
	if *outputDir != "" {
		cfg.Eval.OutputDir = *outputDir
	}
	if *concurrency > 0 {
		cfg.Eval.Concurrency = *concurrency
	}

	corpus, err := eval.LoadCorpus(cfg.Eval.CasesPath)
	if err != nil {
		fail("failed to load case corpus: %v", err)
	}

	gen := openai.New(cfg.Generator)
	wh, err := warehouse.New(cfg.Warehouse)
	if err != nil {
		fail("failed to build warehouse executor: %v", err)
	}
	svc := query.NewService(gen, validator.New(), wh)

	ctx := context.Background()
	if n := cfg.Eval.PreflightSamples; n > 0 {
		if err := eval.Preflight(svc, cfg.Eval.PreflightSeed, n); err != nil {
			fail("grammar preflight failed: %v", err)
		}
		util.Infof("grammar preflight passed (%d derivations)", n)
	}

	util.Infof("running %d case(s) from %s (model=%s, concurrency=%d)",
		corpus.Len(), cfg.Eval.CasesPath, cfg.Generator.Model, cfg.Eval.Concurrency)
	rep := eval.Run(ctx, svc, corpus, eval.Options{Concurrency: cfg.Eval.Concurrency})
	eval.Log(rep)

	if err := persistRun(ctx, cfg, corpus, rep); err != nil {
		util.Warnf("failed to persist run artifacts: %v", err)
	}

	if closer, ok := wh.(io.Closer); ok {
		util.CloseWithErr(closer, "warehouse")
	}
	if !rep.Summary.AllPassed {
		os.Exit(1)
	}
}

// persistRun writes the run directory, archives it, and uploads when a
// storage backend is configured. The summary is written before the
// archive so the archived copy already announces the archive fields,
// and rewritten whenever they change.
func persistRun(ctx context.Context, cfg config.Config, corpus *eval.Corpus, rep *eval.Report) error {
	reporter := report.New(cfg.Eval.OutputDir)
	run, err := reporter.NewRun()
	if err != nil {
		return err
	}
	util.Infof("writing run artifacts to %s", run.Dir)

	if err := reporter.WriteCases(run, corpus); err != nil {
		return err
	}
	if err := reporter.WriteDetails(run, rep); err != nil {
		return err
	}
	if err := reporter.WriteText(run, report.GrammarName, grammar.Text); err != nil {
		return err
	}

	summary := report.BuildSummary(run, rep, cfg.Generator.Model, cfg.Eval.CasesPath, cfg.RunInfo)
	if cfg.Eval.Archive {
		summary.ArchiveName = report.ArchiveName
		summary.ArchiveCodec = report.ArchiveCodec
	}
	if err := reporter.WriteSummary(run, summary); err != nil {
		return err
	}
	if cfg.Eval.Archive {
		if _, _, err := reporter.WriteArchive(run); err != nil {
			util.Warnf("failed to archive run dir=%s err=%v", run.Dir, err)
			summary.ArchiveName = ""
			summary.ArchiveCodec = ""
			if err := reporter.WriteSummary(run, summary); err != nil {
				return err
			}
		}
	}

	up, err := uploader.New(cfg.Storage)
	if err != nil {
		return err
	}
	if !up.Enabled() {
		return nil
	}
	location, err := up.UploadDir(ctx, run.Dir)
	if err != nil {
		util.Warnf("failed to upload run dir=%s err=%v", run.Dir, err)
		return nil
	}
	summary.UploadLocation = location
	if err := reporter.WriteSummary(run, summary); err != nil {
		return err
	}
	util.Highlightf("run uploaded to %s", location)
	return nil
}

func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg
	}
	if os.IsNotExist(err) && path == "config.yaml" {
		util.Infof("no config file found, using defaults")
		return config.Default()
	}
	fail("failed to load config: %v", err)
	return config.Config{}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
