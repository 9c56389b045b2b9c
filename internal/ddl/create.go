// Package ddl defines a small, dialect-neutral model for the rows table and
// renders CREATE TABLE statements for it.
//
// Backends supply a Dialect (identifier quoting and the statement prefix)
// and a TypeMapper; everything else is shared.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect captures the per-backend differences in CREATE TABLE rendering.
type Dialect struct {
	// Quote quotes one identifier segment. Nil emits names verbatim.
	Quote func(string) string
	// Create is the statement prefix, e.g. "CREATE TABLE IF NOT EXISTS".
	// Defaults to "CREATE TABLE".
	Create string
}

// Generic renders unquoted names with a plain CREATE TABLE.
var Generic = Dialect{}

func (d Dialect) ident(s string) string {
	if d.Quote == nil {
		return s
	}
	return d.Quote(s)
}

// FQN quotes each dotted segment of name; empty segments are dropped.
func (d Dialect) FQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.ident(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders:
//
//	<Create> <FQN> (
//	  <col> <TYPE> [NOT NULL] [DEFAULT expr],
//	  ...,
//	  [PRIMARY KEY (<pk-cols>)]
//	);
//
// Primary key columns are always NOT NULL.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.ident(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.ident(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := d.Create
	if create == "" {
		create = "CREATE TABLE"
	}
	return fmt.Sprintf("%s %s (\n  %s\n);", create, d.FQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// QuoteDouble quotes an identifier with double quotes (Postgres, SQLite).
func QuoteDouble(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
