package document

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"dossier/internal/compliance/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/tx"
)

// PostgresStore reads document records from the documents table. Only the
// columns the compliance rollup needs are mapped.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	query := `
		INSERT INTO documents (id, user_id, document_type_id, status, expiration_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			expiration_date = EXCLUDED.expiration_date
	`
	var exp sql.NullTime
	if doc.ExpirationDate != nil {
		exp = sql.NullTime{Time: *doc.ExpirationDate, Valid: true}
	}
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(doc.ID), uuid.UUID(doc.UserID), uuid.UUID(doc.DocumentTypeID), string(doc.Status), exp)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Document, error) {
	query := `
		SELECT id, user_id, document_type_id, status, expiration_date
		FROM documents
		WHERE user_id = $1
	`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		var (
			docID, owner, docType uuid.UUID
			status                string
			exp                   sql.NullTime
		)
		if err := rows.Scan(&docID, &owner, &docType, &status, &exp); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc := &models.Document{
			ID:             id.DocumentID(docID),
			UserID:         id.UserID(owner),
			DocumentTypeID: id.DocumentTypeID(docType),
			Status:         models.DocumentStatus(status),
		}
		if exp.Valid {
			d := calendar.Normalize(exp.Time)
			doc.ExpirationDate = &d
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}
