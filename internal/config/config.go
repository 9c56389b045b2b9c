// Package config defines the JSON configuration model for an export job and
// the helpers that turn it into runtime values.
//
// Example (trimmed):
//
//	{
//	  "job": "metaobjects_export", "type": "export", "use": "metaobjects",
//	  "source": { "domain": "shop.myshopify.com", "api_version": "2024-10" },
//	  "file":   { "dir": "output", "name": "metaobjects", "extension": "csv", "delimiter": ";" },
//	  "order":  ["Group", "Item"],
//	  "objects": [
//	    { "name": "Group", "type": "group",
//	      "fields": { "label": { "type": "single_line_text_field" },
//	                  "items": { "type": "LIST.METAOBJECT_REFERENCE", "metaobject_type": "Item" } } }
//	  ],
//	  "storage": { "kind": "sqlite", "db": { "dsn": "file:rows.db", "table": "metaobject_rows" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"metaexport/internal/schema"
)

// Modes understood by the CLI.
const (
	TypeExport = "export"
	TypeImport = "import"

	UseMetaobjects = "metaobjects"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAPIVersion  = "2024-10"
	DefaultDir         = "output"
	DefaultExtension   = "csv"
	DefaultDelimiter   = ";"
	DefaultTopRowLabel = "TRUE"
	DefaultTable       = "metaobject_rows"
	DefaultBatchSize   = 500
)

// Export is the top-level object decoded from a job file.
type Export struct {
	Job  string `json:"job"`
	Type string `json:"type"`
	Use  string `json:"use"`

	Source Source `json:"source"`
	File   File   `json:"file"`

	// Order lists record type names in output order.
	Order []string `json:"order"`

	// Objects declares the exportable record types.
	Objects []Object `json:"objects"`

	// Storage optionally mirrors the rows into a database table.
	Storage Storage `json:"storage"`
}

// Source configures the remote GraphQL store.
type Source struct {
	Domain      string `json:"domain"`
	APIVersion  string `json:"api_version"`
	AccessToken string `json:"access_token"`

	// Endpoint overrides the URL built from Domain and APIVersion.
	Endpoint string `json:"endpoint"`

	PageSize           int `json:"page_size"`
	TimeoutSeconds     int `json:"timeout_seconds"`
	MaxRetries         int `json:"max_retries"`
	ResolveConcurrency int `json:"resolve_concurrency"`
}

// GraphQLEndpoint returns the admin GraphQL URL for the source.
func (s Source) GraphQLEndpoint() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	if s.Domain == "" {
		return ""
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", s.Domain, s.APIVersion)
}

// Timeout returns the per-request timeout, or zero for the client default.
func (s Source) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// File configures the delimited output file.
type File struct {
	Dir         string `json:"dir"`
	Name        string `json:"name"`
	Extension   string `json:"extension"`
	Delimiter   string `json:"delimiter"`
	TopRowLabel string `json:"top_row_label"`
}

// Object declares one record type. Fields keeps the key order of the JSON
// document; output rows follow it.
type Object struct {
	Name   string                                      `json:"name"`
	Type   string                                      `json:"type"`
	Fields *orderedmap.OrderedMap[string, FieldSpec] `json:"fields"`
}

// FieldSpec is one entry of Object.Fields.
type FieldSpec struct {
	Type string `json:"type"`
	// MetaobjectType names the referenced record type of a list reference.
	MetaobjectType string `json:"metaobject_type,omitempty"`
}

// Storage selects the optional database sink. An empty Kind disables it.
type Storage struct {
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn"`

	// Table is the destination table name.
	Table string `json:"table"`

	// AutoCreateTable creates the table when missing.
	AutoCreateTable bool `json:"auto_create_table"`

	// BatchSize is the number of rows per copy batch.
	BatchSize int `json:"batch_size"`
}

// ConfigurationError reports a type/use combination the tool cannot run.
type ConfigurationError struct {
	Type string
	Use  string
}

func (e *ConfigurationError) Error() string {
	if e.Type == TypeImport {
		return fmt.Sprintf("config: type %q (use %q) is not implemented", e.Type, e.Use)
	}
	return fmt.Sprintf("config: unsupported type %q with use %q", e.Type, e.Use)
}

// Load reads and decodes a job file.
func Load(path string) (Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return Export{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a job document. Unknown keys are rejected.
func Decode(r io.Reader) (Export, error) {
	var e Export
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return Export{}, fmt.Errorf("decode config: %w", err)
	}
	return e, nil
}

// ApplyDefaults fills unset optional values.
func (e *Export) ApplyDefaults() {
	if e.Job == "" {
		e.Job = "metaobjects_export"
	}
	if e.Source.APIVersion == "" {
		e.Source.APIVersion = DefaultAPIVersion
	}
	if e.File.Dir == "" {
		e.File.Dir = DefaultDir
	}
	if e.File.Name == "" {
		e.File.Name = e.Use
	}
	if e.File.Extension == "" {
		e.File.Extension = DefaultExtension
	}
	if e.File.Delimiter == "" {
		e.File.Delimiter = DefaultDelimiter
	}
	if e.File.TopRowLabel == "" {
		e.File.TopRowLabel = DefaultTopRowLabel
	}
	if e.Storage.Kind != "" {
		if e.Storage.DB.Table == "" {
			e.Storage.DB.Table = DefaultTable
		}
		if e.Storage.DB.BatchSize <= 0 {
			e.Storage.DB.BatchSize = DefaultBatchSize
		}
	}
}

// Mode checks that the job asks for something this tool runs.
func (e Export) Mode() error {
	if e.Type == TypeExport && e.Use == UseMetaobjects {
		return nil
	}
	return &ConfigurationError{Type: e.Type, Use: e.Use}
}

// RecordTypes converts Objects into schema record types, preserving field
// order. List-reference prefixes are the lower-cased metaobject_type.
func (e Export) RecordTypes() ([]schema.RecordType, error) {
	out := make([]schema.RecordType, 0, len(e.Objects))
	for i, o := range e.Objects {
		rt := schema.RecordType{Name: o.Name, Type: o.Type}
		if o.Fields != nil {
			for pair := o.Fields.Oldest(); pair != nil; pair = pair.Next() {
				kind, err := schema.ParseKind(pair.Value.Type)
				if err != nil {
					return nil, fmt.Errorf("objects[%d].fields.%s: %w", i, pair.Key, err)
				}
				fd := schema.FieldDescriptor{Key: pair.Key, Kind: kind}
				if kind == schema.KindListReference {
					fd.Prefix = schema.LowerTag(pair.Value.MetaobjectType)
				}
				rt.Fields = append(rt.Fields, fd)
			}
		}
		out = append(out, rt)
	}
	return out, nil
}

// Registry builds the lookup table used by the export run.
func (e Export) Registry() (schema.Registry, error) {
	types, err := e.RecordTypes()
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(types...), nil
}
