// Package all registers every built-in storage backend ("postgres",
// "sqlite", "mssql", "mysql") with the storage factory. Import it for side
// effects from the wiring layer:
//
//	import _ "metaexport/internal/storage/all"
package all

import (
	_ "metaexport/internal/storage/mssql"
	_ "metaexport/internal/storage/mysql"
	_ "metaexport/internal/storage/postgres"
	_ "metaexport/internal/storage/sqlite"
)
