// Package db holds the SQL migrations shared by the server, the migrate
// command and the repository tests.
package db

import "embed"

// Migrations contains the golang-migrate files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
