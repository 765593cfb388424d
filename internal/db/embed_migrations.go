package db

import "embed"

// MigrationFS embeds the schema for users, sessions, revocation entries and audit logs.
// Applied by cmd/migrate and by the integration tests.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
