// Package db owns the PostgreSQL connection and schema lifecycle and vends
// the repositories built on top of it.
package db

import (
	"context"
	"database/sql"

	"github.com/vkulagin/authgate/internal/server/audit"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Audit() audit.Repository
	Close() error
}
