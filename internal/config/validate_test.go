package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validJob(t *testing.T) Export {
	t.Helper()
	e, err := Decode(strings.NewReader(sampleJob))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	e.Source.AccessToken = "shpat_x"
	e.Objects[1].Fields.Set("name", FieldSpec{Type: "single_line_text_field"})
	e.ApplyDefaults()
	return e
}

func TestValidateExport_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidateExport(validJob(t)); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidateExport_Findings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(e *Export)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{
			name:   "missing job",
			mutate: func(e *Export) { e.Job = " " },
			sev:    SeverityError, path: "job", msg: "must not be empty",
		},
		{
			name:   "import mode",
			mutate: func(e *Export) { e.Type = TypeImport },
			sev:    SeverityError, path: "type", msg: "not implemented",
		},
		{
			name:   "no endpoint",
			mutate: func(e *Export) { e.Source.Domain = "" },
			sev:    SeverityError, path: "source.domain", msg: "required",
		},
		{
			name:   "no token",
			mutate: func(e *Export) { e.Source.AccessToken = "" },
			sev:    SeverityWarning, path: "source.access_token", msg: EnvAccessToken,
		},
		{
			name:   "page size clamp",
			mutate: func(e *Export) { e.Source.PageSize = 1000 },
			sev:    SeverityWarning, path: "source.page_size", msg: "clamped",
		},
		{
			name:   "negative retries",
			mutate: func(e *Export) { e.Source.MaxRetries = -1 },
			sev:    SeverityError, path: "source.max_retries", msg: "negative",
		},
		{
			name:   "multi-char delimiter",
			mutate: func(e *Export) { e.File.Delimiter = ";;" },
			sev:    SeverityError, path: "file.delimiter", msg: "single character",
		},
		{
			name:   "quote delimiter",
			mutate: func(e *Export) { e.File.Delimiter = `"` },
			sev:    SeverityError, path: "file.delimiter", msg: "quote",
		},
		{
			name:   "order names unknown object",
			mutate: func(e *Export) { e.Order = append(e.Order, "Ghost") },
			sev:    SeverityWarning, path: "order[2]", msg: `"Ghost"`,
		},
		{
			name: "list reference without metaobject_type",
			mutate: func(e *Export) {
				e.Objects[0].Fields.Set("items", FieldSpec{Type: "LIST.METAOBJECT_REFERENCE"})
			},
			sev: SeverityError, path: "objects[0].fields.items.metaobject_type", msg: "prefix",
		},
		{
			name:   "empty field type",
			mutate: func(e *Export) { e.Objects[0].Fields.Set("zeta", FieldSpec{}) },
			sev:    SeverityError, path: "objects[0].fields.zeta.type", msg: "empty field type",
		},
		{
			name:   "duplicate object",
			mutate: func(e *Export) { e.Objects[1].Name = "GroupLevel" },
			sev:    SeverityError, path: "objects[1].name", msg: "duplicate",
		},
		{
			name:   "unknown storage",
			mutate: func(e *Export) { e.Storage = Storage{Kind: "oracle", DB: DBConfig{DSN: "x", Table: "t"}} },
			sev:    SeverityError, path: "storage.kind", msg: "oracle",
		},
		{
			name:   "storage without dsn",
			mutate: func(e *Export) { e.Storage = Storage{Kind: "sqlite", DB: DBConfig{Table: "t"}} },
			sev:    SeverityError, path: "storage.db.dsn", msg: "must not be empty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := validJob(t)
			tc.mutate(&e)
			issues := ValidateExport(e)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("missing %s at %s (%q); got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestValidateExport_EmptyFieldsWarns(t *testing.T) {
	t.Parallel()

	e := validJob(t)
	e.Objects[1].Fields = nil
	issues := ValidateExport(e)
	if !hasIssue(t, issues, SeverityWarning, "objects[1].fields", "no fields") {
		t.Fatalf("expected empty-fields warning, got %+v", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("warnings only expected, got %+v", issues)
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "file.name", Message: "empty"}
	if got := iss.Error(); got != "error at file.name: empty" {
		t.Fatalf("Error() = %q", got)
	}
}
