package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vkulagin/authgate/internal/server/audit"
	"github.com/vkulagin/authgate/internal/server/migrations"
)

type PostgresRepositoryManager struct {
	db    *sql.DB
	audit audit.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Audit() audit.Repository {
	return m.audit
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and applies them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

// NewPostgresRepositoryManager opens the connection pool and applies any
// pending migrations before handing the manager out.
func NewPostgresRepositoryManager(ctx context.Context, dsn string) (RepositoryManager, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:    conn,
		audit: audit.NewPostgresRepository(conn),
	}

	if err := m.RunMigrations(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
