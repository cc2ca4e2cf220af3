// Package all registers every SQL inventory backend.
package all

import (
	_ "cmdbjoin/internal/datasource/sqlsrc/mssql"
	_ "cmdbjoin/internal/datasource/sqlsrc/postgres"
	_ "cmdbjoin/internal/datasource/sqlsrc/sqlite"
)
