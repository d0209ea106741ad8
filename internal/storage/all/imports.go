// Package all wires every built-in storage backend into the storage factory.
//
// It exists for side effects only: a blank import runs the init functions of
// the backends, which register themselves for the kinds "postgres",
// "sqlite", "mssql" and "mysql". A binary that needs only a subset can import
// the individual backend packages instead.
package all

import (
	_ "tbetl/internal/storage/mssql"
	_ "tbetl/internal/storage/mysql"
	_ "tbetl/internal/storage/postgres"
	_ "tbetl/internal/storage/sqlite"
)
