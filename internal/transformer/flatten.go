// Package transformer turns fetched metaobjects into output rows.
//
// Flatten emits one row per schema field that a record carries, in schema
// order. Reference fields are resolved through a Resolver; a reference that
// cannot be resolved becomes an empty value (single references) or is left
// out (list members), so the export carries on.
package transformer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"metaexport/internal/schema"
)

// TimestampLayout renders fallback update timestamps (UTC, millisecond
// precision, trailing Z).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Resolver is the reference lookup surface the flattener needs.
type Resolver interface {
	ResolvePageHandle(ctx context.Context, id string) string
	ResolveProductHandle(ctx context.Context, id string) string
	ResolveHandles(ctx context.Context, ids []string) []string
}

// Options configures a Flattener.
type Options struct {
	// Now supplies the fallback update timestamp for records without one.
	// Defaults to time.Now.
	Now func() time.Time
}

// Flattener converts records into rows.
type Flattener struct {
	res Resolver
	now func() time.Time
}

// NewFlattener returns a Flattener resolving references through res.
func NewFlattener(res Resolver, opts Options) *Flattener {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Flattener{res: res, now: now}
}

// Flatten returns the rows for rec under record type rt. Rows are numbered
// from next; the caller continues numbering at next+len(rows).
//
// An error is returned only for a descriptor with an unknown Kind.
func (f *Flattener) Flatten(ctx context.Context, rt schema.RecordType, rec schema.Record, next int) ([]schema.Row, error) {
	var (
		rows      []schema.Row
		display   = rec.DisplayName()
		defHandle = schema.LowerTag(rt.Name)
		updated   = rec.UpdatedAt
		local     = 1
	)
	if updated == "" {
		updated = f.now().UTC().Format(TimestampLayout)
	}

	for _, fd := range rt.Fields {
		raw, ok := rec.Fields[fd.Key]
		if !ok {
			continue
		}

		val, err := f.resolveValue(ctx, fd, raw)
		if err != nil {
			return nil, fmt.Errorf("flatten %s %s: %w", rt.Name, rec.ID, err)
		}

		rows = append(rows, schema.Row{
			ID:               rec.NumericID(),
			Handle:           rec.Handle,
			Command:          schema.CommandMerge,
			DisplayName:      display,
			Status:           schema.StatusActive,
			UpdatedAt:        updated,
			DefinitionHandle: defHandle,
			DefinitionName:   rt.Name,
			TopRow:           local == 1,
			Index:            next,
			Field:            fd.Key,
			Value:            val,
		})
		local++
		next++
	}
	return rows, nil
}

func (f *Flattener) resolveValue(ctx context.Context, fd schema.FieldDescriptor, raw string) (string, error) {
	switch fd.Kind {
	case schema.KindScalar:
		return raw, nil
	case schema.KindPageReference:
		return f.res.ResolvePageHandle(ctx, raw), nil
	case schema.KindProductReference:
		return f.res.ResolveProductHandle(ctx, raw), nil
	case schema.KindListReference:
		handles := f.res.ResolveHandles(ctx, parseIDList(fd.Key, raw))
		parts := make([]string, 0, len(handles))
		for _, h := range handles {
			if h == "" {
				continue
			}
			parts = append(parts, fd.Prefix+"."+h)
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("field %q: unsupported kind %v", fd.Key, fd.Kind)
	}
}

// parseIDList decodes a list-reference value (a JSON array of ids). Empty
// and unparseable values yield an empty list.
func parseIDList(key, raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		log.Printf("flatten: field %q has unparseable id list (%v); treating as empty", key, err)
		return nil
	}
	return ids
}
