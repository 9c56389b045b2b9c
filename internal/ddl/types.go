package ddl

// Logical column types. Backends map them to SQL types with a TypeMapper.
const (
	// TypeKey is short text used in keys (run ids).
	TypeKey = "key"
	// TypeText is unbounded text.
	TypeText = "text"
	// TypeInt is a 64-bit integer.
	TypeInt = "int"
	// TypeBool is a boolean flag.
	TypeBool = "bool"
)

// ColumnDef describes a single column. Name is unquoted; quoting happens at
// render time. Default is a raw SQL expression.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name (dotted form, e.g. "schema.table") and an
// ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// TypeMapper maps a logical type (TypeKey, TypeText, ...) to a SQL type.
type TypeMapper func(logical string) string

// Column is one column of the exported rows table in logical terms.
type Column struct {
	Name string
	Type string
	Key  bool
}

// RowColumns is the layout of the exported rows table. Sinks write values
// in this order; (run_id, row_index) identifies a row.
var RowColumns = []Column{
	{Name: "run_id", Type: TypeKey, Key: true},
	{Name: "row_index", Type: TypeInt, Key: true},
	{Name: "record_id", Type: TypeText},
	{Name: "handle", Type: TypeText},
	{Name: "command", Type: TypeText},
	{Name: "display_name", Type: TypeText},
	{Name: "status", Type: TypeText},
	{Name: "updated_at", Type: TypeText},
	{Name: "definition_handle", Type: TypeText},
	{Name: "definition_name", Type: TypeText},
	{Name: "top_row", Type: TypeBool},
	{Name: "field", Type: TypeText},
	{Name: "value", Type: TypeText},
}

// RowColumnNames returns the names of RowColumns in order.
func RowColumnNames() []string {
	out := make([]string, len(RowColumns))
	for i, c := range RowColumns {
		out[i] = c.Name
	}
	return out
}

// RowsTable returns the rows table definition for fqn with SQL types from
// mapType. Every column is NOT NULL.
func RowsTable(fqn string, mapType TypeMapper) TableDef {
	cols := make([]ColumnDef, len(RowColumns))
	for i, c := range RowColumns {
		cols[i] = ColumnDef{Name: c.Name, SQLType: mapType(c.Type), PrimaryKey: c.Key}
	}
	return TableDef{FQN: fqn, Columns: cols}
}
