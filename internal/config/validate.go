package config

import (
	"fmt"
	"strings"

	"metaexport/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config (e.g. "objects[1].fields.items.metaobject_type").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var knownStorageKinds = map[string]struct{}{
	"postgres": {},
	"mysql":    {},
	"mssql":    {},
	"sqlite":   {},
}

// ValidateExport performs static checks over a decoded (and defaulted) job.
// It does not mutate e.
func ValidateExport(e Export) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(e.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics and log lines")
	}
	if err := e.Mode(); err != nil {
		add(SeverityError, "type", "%v", err)
	}

	issues = append(issues, validateSource(e.Source)...)
	issues = append(issues, validateFile(e.File)...)

	names := make(map[string]int, len(e.Objects))
	for i, o := range e.Objects {
		base := fmt.Sprintf("objects[%d]", i)
		if strings.TrimSpace(o.Name) == "" {
			add(SeverityError, base+".name", "object name must not be empty")
		} else if prev, dup := names[o.Name]; dup {
			add(SeverityError, base+".name", "duplicate object name %q (also objects[%d])", o.Name, prev)
		} else {
			names[o.Name] = i
		}
		if strings.TrimSpace(o.Type) == "" {
			add(SeverityError, base+".type", "object type tag must not be empty")
		}
		if o.Fields == nil || o.Fields.Len() == 0 {
			add(SeverityWarning, base+".fields", "object %q has no fields; it will produce no rows", o.Name)
			continue
		}
		for pair := o.Fields.Oldest(); pair != nil; pair = pair.Next() {
			fpath := base + ".fields." + pair.Key
			kind, err := schema.ParseKind(pair.Value.Type)
			if err != nil {
				add(SeverityError, fpath+".type", "%v", err)
				continue
			}
			if kind == schema.KindListReference && strings.TrimSpace(pair.Value.MetaobjectType) == "" {
				add(SeverityError, fpath+".metaobject_type", "list reference needs metaobject_type for its handle prefix")
			}
		}
	}

	if len(e.Order) == 0 {
		add(SeverityWarning, "order", "order is empty; nothing will be exported")
	}
	for i, name := range e.Order {
		if _, ok := names[name]; !ok {
			add(SeverityWarning, fmt.Sprintf("order[%d]", i), "no object named %q; it will be skipped", name)
		}
	}

	issues = append(issues, validateStorage(e.Storage)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if s.GraphQLEndpoint() == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.domain",
			Message:  "source.domain (or " + EnvDomain + ") or source.endpoint is required",
		})
	}
	if s.AccessToken == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.access_token",
			Message:  "no access token; set " + EnvAccessToken,
		})
	}
	if s.PageSize < 0 || s.PageSize > 250 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.page_size",
			Message:  fmt.Sprintf("page_size=%d is outside 1..250 and will be clamped", s.PageSize),
		})
	}
	for _, f := range []struct {
		path string
		v    int
	}{
		{"source.timeout_seconds", s.TimeoutSeconds},
		{"source.max_retries", s.MaxRetries},
		{"source.resolve_concurrency", s.ResolveConcurrency},
	} {
		if f.v < 0 {
			issues = append(issues, Issue{Severity: SeverityError, Path: f.path, Message: "must not be negative"})
		}
	}
	return issues
}

func validateFile(f File) []Issue {
	var issues []Issue
	if strings.TrimSpace(f.Name) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "file.name", Message: "file.name must not be empty"})
	}
	if n := len([]rune(f.Delimiter)); n != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "file.delimiter",
			Message:  fmt.Sprintf("delimiter must be a single character, got %q", f.Delimiter),
		})
	} else if strings.ContainsAny(f.Delimiter, "\"\r\n") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "file.delimiter",
			Message:  fmt.Sprintf("delimiter %q cannot be a quote or line break", f.Delimiter),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	if strings.TrimSpace(s.Kind) == "" {
		return nil
	}
	var issues []Issue
	if _, ok := knownStorageKinds[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.dsn", Message: "storage.db.dsn must not be empty"})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.table", Message: "storage.db.table must not be empty"})
	}
	return issues
}
