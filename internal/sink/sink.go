// Package sink writes the assembled export table to its destinations: a
// delimited file and, optionally, a database table.
package sink

import (
	"context"
	"fmt"

	"metaexport/internal/schema"
)

// Sink receives the full row sequence of one export.
type Sink interface {
	Write(ctx context.Context, header []string, rows []schema.Row) error
}

// Multi writes to each sink in order and stops at the first failure.
func Multi(sinks ...Sink) Sink { return multi(sinks) }

type multi []Sink

func (m multi) Write(ctx context.Context, header []string, rows []schema.Row) error {
	for i, s := range m {
		if err := s.Write(ctx, header, rows); err != nil {
			return fmt.Errorf("sink %d (%T): %w", i, s, err)
		}
	}
	return nil
}
