package metaobjects

import (
	"context"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"metaexport/internal/datasource"
	"metaexport/internal/schema"
)

// DefaultConcurrency bounds the list-reference fan-out when none is configured.
const DefaultConcurrency = 8

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	// Concurrency is the maximum number of in-flight lookups for one
	// list-reference field.
	Concurrency int
}

// Resolver turns reference ids into handles. Apart from ResolveRecord, its
// methods never fail: an unresolvable reference is logged and degrades to an
// empty value so one broken reference cannot fail an export.
type Resolver struct {
	q           datasource.Querier
	concurrency int

	failures atomic.Int64
}

// NewResolver returns a Resolver issuing queries through q.
func NewResolver(q datasource.Querier, opts ResolverOptions) *Resolver {
	n := opts.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}
	return &Resolver{q: q, concurrency: n}
}

// ResolveRecord looks up one metaobject of any type. It returns nil, nil for
// an empty id or when the store has no such object.
func (r *Resolver) ResolveRecord(ctx context.Context, id string) (*schema.Record, error) {
	if id == "" {
		return nil, nil
	}
	var resp metaobjectResponse
	if err := r.q.Query(ctx, metaobjectQuery, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	if resp.Metaobject == nil {
		return nil, nil
	}
	rec := resp.Metaobject.record()
	return &rec, nil
}

// ResolvePageHandle returns the handle of page id, or "" when it cannot be
// resolved (including missing read_content access).
func (r *Resolver) ResolvePageHandle(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	var resp pageResponse
	if err := r.q.Query(ctx, pageHandleQuery, map[string]any{"id": id}, &resp); err != nil {
		r.failures.Add(1)
		log.Printf("resolve: page %s unavailable (%v); using empty value", id, err)
		return ""
	}
	if resp.Page == nil {
		r.failures.Add(1)
		log.Printf("resolve: page %s not found; using empty value", id)
		return ""
	}
	return resp.Page.Handle
}

// ResolveProductHandle returns the handle of product id, or "" when it
// cannot be resolved.
func (r *Resolver) ResolveProductHandle(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	var resp productResponse
	if err := r.q.Query(ctx, productHandleQuery, map[string]any{"id": id}, &resp); err != nil {
		r.failures.Add(1)
		log.Printf("resolve: product %s unavailable (%v); using empty value", id, err)
		return ""
	}
	if resp.Product == nil {
		r.failures.Add(1)
		log.Printf("resolve: product %s not found; using empty value", id)
		return ""
	}
	return resp.Product.Handle
}

// ResolveHandles resolves metaobject ids concurrently and returns the handles
// of those that resolved, in input order. Empty ids are skipped; failed,
// missing or handle-less references are logged and dropped.
func (r *Resolver) ResolveHandles(ctx context.Context, ids []string) []string {
	slots := make([]string, len(ids))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		if id == "" {
			continue
		}
		g.Go(func() error {
			rec, err := r.ResolveRecord(ctx, id)
			switch {
			case err != nil:
				r.failures.Add(1)
				log.Printf("resolve: metaobject %s dropped (%v)", id, err)
			case rec == nil:
				r.failures.Add(1)
				log.Printf("resolve: metaobject %s dropped (not found)", id)
			case rec.Handle == "":
				r.failures.Add(1)
				log.Printf("resolve: metaobject %s dropped (empty handle)", id)
			default:
				slots[i] = rec.Handle
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(ids))
	for _, h := range slots {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

// Failures returns the number of references that degraded to an empty or
// omitted value.
func (r *Resolver) Failures() int64 { return r.failures.Load() }
