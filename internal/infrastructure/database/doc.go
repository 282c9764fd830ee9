// Package database provides SQLite persistence for the auth service.
//
// It wraps database/sql with connection lifecycle management, WAL mode
// configuration, health checks, and an embedded migration runner. The
// migrations package registers its SQL files via MigrationsFS at init.
package database
