package sql

import (
	_ "embed"
)

// CompaniesSchema creates the companies table in Postgres.
//
//go:embed schema/companies.sql
var CompaniesSchema string

// CompaniesSchemaSQLite is the SQLite rendition used by the local sink.
//
//go:embed schema/companies_sqlite.sql
var CompaniesSchemaSQLite string
