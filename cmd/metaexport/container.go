// Package main wires the export end to end: GraphQL transport, fetcher,
// resolver, flattener, assembler and sinks. The wiring layer depends only on
// the storage factory and never imports database drivers directly.
package main

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"metaexport/internal/config"
	"metaexport/internal/datasource"
	"metaexport/internal/datasource/graphql"
	"metaexport/internal/datasource/metaobjects"
	"metaexport/internal/export"
	"metaexport/internal/metrics"
	"metaexport/internal/schema"
	"metaexport/internal/sink"
	"metaexport/internal/storage"
	"metaexport/internal/transformer"
)

// runOptions carries per-invocation settings that are not part of the job file.
type runOptions struct {
	RunID   string
	Verbose bool
}

// summary is what a successful run reports.
type summary struct {
	Records int
	Rows    int
	Path    string
	Digest  uint64
	Skipped []string
}

// Function variables used as test seams.
var (
	newQuerierFn = func(cfg graphql.Config) (datasource.Querier, error) {
		c, err := graphql.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	newRepositoryFn = storage.New

	nowFn = time.Now
)

// run executes one export described by e. Sinks are prepared before the
// first remote call so local misconfiguration fails fast.
func run(ctx context.Context, e config.Export, opts runOptions) (summary, error) {
	if err := e.Mode(); err != nil {
		return summary{}, err
	}
	reg, err := e.Registry()
	if err != nil {
		return summary{}, err
	}

	delim, _ := utf8.DecodeRuneInString(e.File.Delimiter)
	fileSink, err := sink.NewFileSink(sink.FileConfig{
		Dir:         e.File.Dir,
		Name:        e.File.Name,
		Extension:   e.File.Extension,
		Delimiter:   delim,
		TopRowLabel: e.File.TopRowLabel,
	})
	if err != nil {
		return summary{}, err
	}
	sinks := []sink.Sink{fileSink}

	if e.Storage.Kind != "" {
		log.Printf("storage: kind=%s table=%s run_id=%s", e.Storage.Kind, e.Storage.DB.Table, opts.RunID)
		repo, err := newRepositoryFn(ctx, storage.Config{
			Kind:  e.Storage.Kind,
			DSN:   e.Storage.DB.DSN,
			Table: e.Storage.DB.Table,
		})
		if err != nil {
			return summary{}, fmt.Errorf("init repo: %w", err)
		}
		defer repo.Close()

		dbSink, err := sink.NewDBSink(repo, sink.DBConfig{
			Kind:            e.Storage.Kind,
			Table:           e.Storage.DB.Table,
			RunID:           opts.RunID,
			BatchSize:       e.Storage.DB.BatchSize,
			AutoCreateTable: e.Storage.DB.AutoCreateTable,
		})
		if err != nil {
			return summary{}, err
		}
		sinks = append(sinks, dbSink)
	}

	q, err := newQuerierFn(graphql.Config{
		Endpoint:    e.Source.GraphQLEndpoint(),
		AccessToken: e.Source.AccessToken,
		Timeout:     e.Source.Timeout(),
		MaxRetries:  e.Source.MaxRetries,
	})
	if err != nil {
		return summary{}, fmt.Errorf("init client: %w", err)
	}

	fetcher := metaobjects.NewFetcher(q, metaobjects.FetcherOptions{
		PageSize: e.Source.PageSize,
		Verbose:  opts.Verbose,
	})
	resolver := metaobjects.NewResolver(q, metaobjects.ResolverOptions{
		Concurrency: e.Source.ResolveConcurrency,
	})
	flat := transformer.NewFlattener(resolver, transformer.Options{Now: nowFn})
	asm := export.New(reg, fetcher, flat, export.Config{Job: e.Job, Verbose: opts.Verbose})

	res, err := asm.Run(ctx, e.Order)
	metrics.RecordPages(e.Job, fetcher.Pages())
	metrics.RecordRecords(e.Job, metrics.KindResolveFailed, resolver.Failures())
	if err != nil {
		return summary{}, err
	}
	if opts.Verbose {
		log.Printf("export: records=%d rows=%d pages=%d resolve_failed=%d digest=%016x",
			res.Total, len(res.Rows), fetcher.Pages(), resolver.Failures(), res.Digest)
	}

	start := time.Now()
	err = sink.Multi(sinks...).Write(ctx, schema.Header, res.Rows)
	metrics.RecordStep(e.Job, "write", err, time.Since(start))
	if err != nil {
		return summary{}, fmt.Errorf("write: %w", err)
	}

	return summary{
		Records: res.Total,
		Rows:    len(res.Rows),
		Path:    fileSink.Path(),
		Digest:  res.Digest,
		Skipped: res.Skipped,
	}, nil
}
