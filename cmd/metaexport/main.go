package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"metaexport/internal/config"
	"metaexport/internal/datasource/graphql"
	"metaexport/internal/metrics"
	"metaexport/internal/metrics/datadog"
	"metaexport/internal/metrics/prompush"

	// register all backends with the storage factory; the job file picks one.
	_ "metaexport/internal/storage/all"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var (
		cfgPath           string
		envFile           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		datadogAddrFlg    string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/export/sample.json", "export job JSON path")
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file with SHOPIFY_* credentials (missing file is ignored)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&datadogAddrFlg, "datadog-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if err := config.LoadDotEnv(envFile); err != nil {
		log.Printf("env: %v", err)
		return exitFailure
	}

	e, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
	e.OverlayEnv(nil)
	e.ApplyDefaults()

	var cfgErr *config.ConfigurationError
	if err := e.Mode(); errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", cfgErr)
		return exitConfig
	}

	issues := config.ValidateExport(e)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		return exitFailure
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		return exitOK
	}

	if flush := setupMetrics(e.Job, metricsBackendFlg, pushGatewayURLFlg, datadogAddrFlg, *verbose); flush != nil {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	start := time.Now()
	if *verbose {
		log.Printf("export: job=%s run_id=%s endpoint=%s order=%v storage=%q",
			e.Job, runID, e.Source.GraphQLEndpoint(), e.Order, e.Storage.Kind)
	}

	sum, err := run(ctx, e, runOptions{RunID: runID, Verbose: *verbose})
	if err != nil {
		switch {
		case errors.As(err, &cfgErr):
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", cfgErr)
			return exitConfig
		case graphql.IsAccessDenied(err):
			log.Printf("export failed: access denied; check the access token scopes: %v", err)
		default:
			log.Printf("export failed: %v", err)
		}
		return exitFailure
	}

	log.Printf("export complete: %d rows in %s", sum.Rows, sum.Path)
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	return exitOK
}

// setupMetrics installs the selected backend and returns its flush func, or
// nil when metrics stay disabled. Resolution is flag → env → default.
func setupMetrics(job, backendFlg, gwFlg, ddFlg string, verbose bool) func() {
	backendName := firstNonEmpty(backendFlg, os.Getenv("METRICS_BACKEND"), "none")

	var (
		b   metrics.Backend
		err error
	)
	switch backendName {
	case "pushgateway", "prometheus":
		gwURL := firstNonEmpty(gwFlg, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err = prompush.NewBackend(job, gwURL)
		if err == nil {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		}
	case "datadog":
		addr := firstNonEmpty(ddFlg, os.Getenv("DD_DOGSTATSD_ADDR"), "127.0.0.1:8125")
		b, err = datadog.NewBackend(datadog.Config{Addr: addr, GlobalTags: []string{"job:" + job}})
		if err == nil {
			log.Printf("metrics: addr=%v, backend=%v, job_name=%v", addr, backendName, job)
		}
	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
		return nil
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return nil
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", backendName, err)
		return nil
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
