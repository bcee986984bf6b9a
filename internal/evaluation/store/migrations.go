package store

import "embed"

// Migrations holds the schema for both SQL backends, under
// migrations/postgres and migrations/sqlite.
//
//go:embed migrations
var Migrations embed.FS

// MigrationsTable is the golang-migrate version table for this schema.
const MigrationsTable = "submission_schema_migrations"

const (
	PostgresMigrationsDir = "migrations/postgres"
	SQLiteMigrationsDir   = "migrations/sqlite"
)
