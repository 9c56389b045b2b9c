// Package datasource holds the contracts shared by the remote data sources.
package datasource

import "context"

// Querier executes one GraphQL document against the remote store and decodes
// the response's data object into out. Variables are passed separately from
// the document text; implementations must never splice them into the query.
//
// A response carrying GraphQL errors is a failure, never partial data.
type Querier interface {
	Query(ctx context.Context, query string, vars map[string]any, out any) error
}
