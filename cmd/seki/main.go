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
	"seki/internal/openai"
	"seki/internal/query"
	"seki/internal/server"
	"seki/internal/util"
	"seki/internal/validator"
	"seki/internal/warehouse"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		util.Detailf("no .env file loaded: %v", err)
	}

	cfg := loadConfig(*configPath)
	util.SetVerbose(cfg.Logging.Verbose)
	if !cfg.Logging.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	gen := openai.New(cfg.Generator)
	wh, err := warehouse.New(cfg.Warehouse)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build warehouse executor: %v\n", err)
		os.Exit(1)
	}
	if closer, ok := wh.(io.Closer); ok {
		defer util.CloseWithErr(closer, "warehouse")
	}
	svc := query.NewService(gen, validator.New(), wh)

	corpus, err := eval.LoadCorpus(cfg.Eval.CasesPath)
	if err != nil {
		if cfg.Eval.RunOnStartup {
			fmt.Fprintf(os.Stderr, "failed to load eval corpus: %v\n", err)
			os.Exit(1)
		}
		util.Warnf("eval corpus unavailable: %v", err)
		corpus = nil
	}

	opts := eval.Options{Concurrency: cfg.Eval.Concurrency}
	if cfg.Eval.RunOnStartup {
		if n := cfg.Eval.PreflightSamples; n > 0 {
			if err := eval.Preflight(svc, cfg.Eval.PreflightSeed, n); err != nil {
				fmt.Fprintf(os.Stderr, "grammar preflight failed: %v\n", err)
				os.Exit(1)
			}
			util.Infof("grammar preflight passed (%d derivations)", n)
		}
		util.Infof("running startup evals over %d case(s)", corpus.Len())
		rep := eval.Run(context.Background(), svc, corpus, opts)
		eval.Log(rep)
		if !rep.Summary.AllPassed {
			fmt.Fprintln(os.Stderr, "startup evals failed")
			os.Exit(1)
		}
	}

	util.Infof("listening on %s (model=%s, warehouse=%s)", cfg.ListenAddr, cfg.Generator.Model, cfg.Warehouse.Driver)
	srv := server.New(svc, corpus, opts)
	if err := srv.Router().Run(cfg.ListenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig falls back to built-in defaults only when the default
// config path is absent; an explicit path must exist.
func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg
	}
	if os.IsNotExist(err) && path == "config.yaml" {
		util.Infof("no config file found, using defaults")
		return config.Default()
	}
	fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
	os.Exit(1)
	return config.Config{}
}
