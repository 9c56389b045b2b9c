package metaobjects

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"metaexport/internal/datasource"
	"metaexport/internal/schema"
)

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// PageSize is the number of records requested per page. Zero or values
	// above MaxPageSize use MaxPageSize.
	PageSize int

	// Verbose logs one line per page.
	Verbose bool
}

// Fetcher retrieves every metaobject of a type by following the cursor
// pagination protocol.
type Fetcher struct {
	q        datasource.Querier
	pageSize int
	verbose  bool

	pages atomic.Int64
}

// NewFetcher returns a Fetcher issuing queries through q.
func NewFetcher(q datasource.Querier, opts FetcherOptions) *Fetcher {
	size := opts.PageSize
	if size <= 0 || size > MaxPageSize {
		size = MaxPageSize
	}
	return &Fetcher{q: q, pageSize: size, verbose: opts.Verbose}
}

// FetchAll returns all records of typeTag in the order the store returns
// them, concatenating pages as they arrive. Any failed page aborts the fetch;
// nothing is retried here.
func (f *Fetcher) FetchAll(ctx context.Context, typeTag string) ([]schema.Record, error) {
	var (
		out    []schema.Record
		cursor *string
	)

	for page := 1; ; page++ {
		vars := map[string]any{
			"type":  typeTag,
			"first": f.pageSize,
			"after": cursor,
		}

		var resp connectionResponse
		if err := f.q.Query(ctx, metaobjectsQuery, vars, &resp); err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", typeTag, page, err)
		}
		f.pages.Add(1)

		conn := resp.Metaobjects
		for _, e := range conn.Edges {
			out = append(out, e.Node.record())
		}
		if f.verbose {
			log.Printf("fetch: type=%s page=%d records=%d total=%d", typeTag, page, len(conn.Edges), len(out))
		}

		if !conn.PageInfo.HasNextPage {
			return out, nil
		}
		if conn.PageInfo.EndCursor == nil {
			return nil, fmt.Errorf("fetch %s page %d: hasNextPage without endCursor", typeTag, page)
		}
		cursor = conn.PageInfo.EndCursor
	}
}

// Pages returns the number of pages fetched so far.
func (f *Fetcher) Pages() int64 { return f.pages.Load() }
