package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vkulagin/authgate/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {

	query :=
		`INSERT INTO audit_log (user_id, action, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, timestamp
		 `

	// an unresolved subject is stored as NULL, not an empty string
	var userID sql.NullString
	if entry.UserID != "" {
		userID = sql.NullString{String: entry.UserID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		userID, string(entry.Action), entry.IPAddress, entry.UserAgent).
		Scan(&entry.ID, &entry.Timestamp)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
