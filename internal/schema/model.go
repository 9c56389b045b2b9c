// Package schema defines the typed model shared by every export stage:
// record types and their field descriptors (what the caller asked for),
// records (what the remote store returned) and rows (what the sinks write).
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind classifies how a field's raw value is turned into an output value.
type Kind int

const (
	// KindScalar values are written unchanged.
	KindScalar Kind = iota + 1
	// KindPageReference values are page ids resolved to the page handle.
	KindPageReference
	// KindProductReference values are product ids resolved to the product handle.
	KindProductReference
	// KindListReference values are JSON arrays of metaobject ids resolved to
	// "<prefix>.<handle>" entries.
	KindListReference
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "SCALAR"
	case KindPageReference:
		return "PAGE_REFERENCE"
	case KindProductReference:
		return "PRODUCT_REFERENCE"
	case KindListReference:
		return "LIST.METAOBJECT_REFERENCE"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind maps a field type tag from the export config onto a Kind.
// Reference tags are matched case-insensitively; any other non-empty tag
// (single_line_text_field, number_integer, json, ...) is a scalar.
func ParseKind(tag string) (Kind, error) {
	t := strings.TrimSpace(tag)
	if t == "" {
		return 0, fmt.Errorf("schema: empty field type")
	}
	switch strings.ToUpper(t) {
	case "PAGE_REFERENCE":
		return KindPageReference, nil
	case "PRODUCT_REFERENCE":
		return KindProductReference, nil
	case "LIST.METAOBJECT_REFERENCE":
		return KindListReference, nil
	}
	return KindScalar, nil
}

// FieldDescriptor describes one field of a record type.
type FieldDescriptor struct {
	Key  string
	Kind Kind

	// Prefix is prepended to resolved handles of list references,
	// e.g. "grouplevel" renders "grouplevel.<handle>".
	Prefix string
}

// RecordType is one exportable metaobject definition.
type RecordType struct {
	// Name is the definition's display name, e.g. "GroupLevel".
	Name string
	// Type is the remote type tag used to query records, e.g. "group_level".
	Type string
	// Fields is the ordered field schema; output rows follow this order.
	Fields []FieldDescriptor
}

// Registry indexes record types by Name.
type Registry map[string]RecordType

// NewRegistry builds a Registry. Later duplicates replace earlier ones.
func NewRegistry(types ...RecordType) Registry {
	r := make(Registry, len(types))
	for _, t := range types {
		r[t.Name] = t
	}
	return r
}

// Lookup returns the record type registered under name.
func (r Registry) Lookup(name string) (RecordType, bool) {
	t, ok := r[name]
	return t, ok
}

// Record is one metaobject as returned by the remote store.
type Record struct {
	ID        string // gid://shopify/Metaobject/123
	Handle    string
	UpdatedAt string

	// Fields maps a field key to its raw value. A key is present only when
	// the store returned the field for this record.
	Fields map[string]string
}

// NumericID returns the last path segment of the record id.
func (r Record) NumericID() string {
	if i := strings.LastIndexByte(r.ID, '/'); i >= 0 {
		return r.ID[i+1:]
	}
	return r.ID
}

// DisplayName returns the first non-empty of the label or name fields.
func (r Record) DisplayName() string {
	if v := r.Fields["label"]; v != "" {
		return v
	}
	return r.Fields["name"]
}

// Fixed row tags.
const (
	CommandMerge = "MERGE"
	StatusActive = "Active"
)

// Header is the fixed column header every sink writes.
var Header = []string{
	"ID",
	"Handle",
	"Command",
	"Display Name",
	"Status",
	"Updated At",
	"Definition: Handle",
	"Definition: Name",
	"Top Row",
	"Row #",
	"Field",
	"Value",
}

// Row is one flattened (record, field) pair.
type Row struct {
	ID               string
	Handle           string
	Command          string
	DisplayName      string
	Status           string
	UpdatedAt        string
	DefinitionHandle string
	DefinitionName   string
	TopRow           bool
	Index            int
	Field            string
	Value            string
}

// Strings renders the row in Header order. topRowLabel is written for rows
// with TopRow set; other rows get an empty cell.
func (r Row) Strings(topRowLabel string) []string {
	top := ""
	if r.TopRow {
		top = topRowLabel
	}
	return []string{
		r.ID,
		r.Handle,
		r.Command,
		r.DisplayName,
		r.Status,
		r.UpdatedAt,
		r.DefinitionHandle,
		r.DefinitionName,
		top,
		strconv.Itoa(r.Index),
		r.Field,
		r.Value,
	}
}

// LowerTag lower-cases a definition name or type tag for use in handles and
// list-reference prefixes, e.g. "GroupLevel" -> "grouplevel".
func LowerTag(s string) string {
	return cases.Lower(language.Und).String(s)
}
