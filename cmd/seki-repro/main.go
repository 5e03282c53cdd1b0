package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"seki/internal/config"
	"seki/internal/eval"
	"seki/internal/openai"
	"seki/internal/query"
	"seki/internal/report"
	"seki/internal/util"
	"seki/internal/validator"
	"seki/internal/warehouse"

	"github.com/joho/godotenv"
)

func main() {
	runDir := flag.String("dir", "", "path to a run directory (required)")
	suiteName := flag.String("suite", eval.SuiteGrammar, "suite to replay: grammar_compliance, semantic_correctness or edge_cases")
	index := flag.Int("index", 0, "case index within the suite")
	execute := flag.Bool("execute", false, "execute the regenerated statement against the warehouse")
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "dir is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		util.Detailf("no .env file loaded: %v", err)
	}
	cfg := loadConfig(*configPath)
	util.SetVerbose(cfg.Logging.Verbose)

	corpus, err := eval.LoadCorpus(filepath.Join(*runDir, report.CasesName))
	if err != nil {
		fail("failed to load corpus snapshot: %v", err)
	}
	cases, err := corpus.SuiteCases(*suiteName)
	if err != nil {
		fail("%v", err)
	}
	if *index < 0 || *index >= len(cases) {
		fail("index %d out of range: suite %s has %d case(s)", *index, *suiteName, len(cases))
	}
	c := cases[*index]
	recorded := recordedDetail(*runDir, *suiteName, *index)

	gen := openai.New(cfg.Generator)
	wh, err := warehouse.New(cfg.Warehouse)
	if err != nil {
		fail("failed to build warehouse executor: %v", err)
	}
	svc := query.NewService(gen, validator.New(), wh)

	ctx := context.Background()
	util.Infof("replaying %s[%d]: %q", *suiteName, *index, c.Query)
	d, err := eval.RunCase(ctx, svc, *suiteName, c)
	if err != nil {
		fail("%v", err)
	}

	if recorded != nil {
		util.Infof("recorded: %s %s", recorded.Status, recorded.SQL)
		if recorded.SQL != d.SQL {
			util.Warnf("generated statement drifted from the recorded run")
		}
	}
	util.Infof("replayed: %s %s", d.Status, d.SQL)
	if d.Reason != "" {
		util.Warnf("reason: %s", d.Reason)
	}
	if d.Note != "" {
		util.Detailf("note: %s", d.Note)
	}

	if *execute && d.Status == eval.StatusPass {
		rs, err := svc.Execute(ctx, d.SQL)
		if err != nil {
			fail("failed to execute statement: %v", err)
		}
		util.Highlightf("%d row(s)", rs.Rows)
		for _, row := range rs.Data {
			fmt.Printf("%v\n", row)
		}
	}
	if closer, ok := wh.(io.Closer); ok {
		util.CloseWithErr(closer, "warehouse")
	}

	if d.Status != eval.StatusPass {
		os.Exit(1)
	}
}

// recordedDetail pulls the original verdict from details.json when the
// run directory still carries it. Best effort: a missing or stale file
// just skips the drift comparison.
func recordedDetail(dir, suiteName string, index int) *eval.Detail {
	data, err := os.ReadFile(filepath.Join(dir, report.DetailsName))
	if err != nil {
		return nil
	}
	var rep eval.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil
	}
	for _, s := range rep.Suites() {
		if s.Name != suiteName {
			continue
		}
		if index < 0 || index >= len(s.Details) {
			return nil
		}
		d := s.Details[index]
		return &d
	}
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
