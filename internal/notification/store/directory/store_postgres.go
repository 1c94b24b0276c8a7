package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "dossier/pkg/domain"
	"dossier/pkg/platform/tx"
)

// PostgresStore reads roles from the users table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListAdminIDs(ctx context.Context) ([]id.UserID, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT id FROM users WHERE role = $1 AND is_active ORDER BY id`, RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []id.UserID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		out = append(out, id.UserID(u))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admins: %w", err)
	}
	return out, nil
}
