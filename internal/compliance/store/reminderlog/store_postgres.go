package reminderlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dossier/internal/compliance/models"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/tx"
)

const logColumns = `id, requirement_id, user_id, reminder_type, days_offset, sent_at, notification_id`

// PostgresStore persists reminder log entries in PostgreSQL. Entries are
// append-only.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.ReminderLogEntry) error {
	if entry == nil {
		return fmt.Errorf("reminder log entry is required")
	}
	query := `INSERT INTO reminder_logs (` + logColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.RequirementID),
		uuid.UUID(entry.UserID),
		string(entry.ReminderType),
		entry.DaysOffset,
		entry.SentAt,
		uuid.UUID(entry.NotificationID),
	)
	if err != nil {
		return fmt.Errorf("append reminder log: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestReminder(ctx context.Context, requirementID id.RequirementID, reminderType models.ReminderType) (*models.ReminderLogEntry, error) {
	query := `
		SELECT ` + logColumns + `
		FROM reminder_logs
		WHERE requirement_id = $1 AND reminder_type = $2
		ORDER BY sent_at DESC
		LIMIT 1
	`
	entry, err := scanEntry(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(requirementID), string(reminderType)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find latest reminder: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListByRequirement(ctx context.Context, requirementID id.RequirementID) ([]*models.ReminderLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM reminder_logs WHERE requirement_id = $1 ORDER BY sent_at`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, uuid.UUID(requirementID))
	if err != nil {
		return nil, fmt.Errorf("list reminder logs: %w", err)
	}
	defer rows.Close()

	var out []*models.ReminderLogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder log: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminder logs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM reminder_logs WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reminder logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge reminder logs: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) CountByTypeBetween(ctx context.Context, from, to time.Time) (map[models.ReminderType]int, error) {
	query := `
		SELECT reminder_type, COUNT(*)
		FROM reminder_logs
		WHERE sent_at >= $1 AND sent_at < $2
		GROUP BY reminder_type
	`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("count reminder logs: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ReminderType]int)
	for rows.Next() {
		var (
			rt string
			n  int
		)
		if err := rows.Scan(&rt, &n); err != nil {
			return nil, fmt.Errorf("scan reminder count: %w", err)
		}
		counts[models.ReminderType(rt)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminder counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.ReminderLogEntry, error) {
	var (
		entryID, reqID, userID, notifID uuid.UUID
		rt                              string
		entry                           models.ReminderLogEntry
	)
	if err := row.Scan(&entryID, &reqID, &userID, &rt, &entry.DaysOffset, &entry.SentAt, &notifID); err != nil {
		return nil, err
	}
	entry.ID = id.ReminderLogID(entryID)
	entry.RequirementID = id.RequirementID(reqID)
	entry.UserID = id.UserID(userID)
	entry.ReminderType = models.ReminderType(rt)
	entry.NotificationID = id.NotificationID(notifID)
	return &entry, nil
}
