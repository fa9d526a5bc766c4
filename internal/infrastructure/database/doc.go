// Package database manages the SQLite state store: connection lifecycle,
// embedded schema migrations, health checks and online backups.
package database
