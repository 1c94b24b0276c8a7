package requirement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"dossier/internal/compliance/models"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/sentinel"
	"dossier/pkg/platform/tx"
)

const requirementColumns = `id, user_id, document_type_id, required_date, status, expiration_date,
	next_renewal_date, reminder_sent_count, last_reminder_sent, created_at, updated_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists requirements in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed requirement store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, req *models.Requirement) error {
	if req == nil {
		return fmt.Errorf("requirement is required")
	}
	query := `
		INSERT INTO requirements (` + requirementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			required_date = EXCLUDED.required_date,
			status = EXCLUDED.status,
			expiration_date = EXCLUDED.expiration_date,
			next_renewal_date = EXCLUDED.next_renewal_date,
			reminder_sent_count = EXCLUDED.reminder_sent_count,
			last_reminder_sent = EXCLUDED.last_reminder_sent,
			updated_at = EXCLUDED.updated_at
	`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(req.ID),
		uuid.UUID(req.UserID),
		uuid.UUID(req.DocumentTypeID),
		req.RequiredDate,
		string(req.Status),
		nullTime(req.ExpirationDate),
		nullTime(req.NextRenewalDate),
		req.ReminderSentCount,
		nullTime(req.LastReminderSent),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save requirement: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reqID id.RequirementID) (*models.Requirement, error) {
	query := `SELECT ` + requirementColumns + ` FROM requirements WHERE id = $1`
	req, err := scanRequirement(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(reqID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find requirement: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.RequirementFilter) ([]*models.Requirement, error) {
	builder := psql.Select(requirementColumns).From("requirements").OrderBy("required_date", "id")
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		builder = builder.Where("status = ANY(?)", pq.Array(statuses))
	}
	if filter.UserID != nil {
		builder = builder.Where(sq.Eq{"user_id": uuid.UUID(*filter.UserID)})
	}
	if filter.ExpirationFrom != nil {
		builder = builder.Where(sq.GtOrEq{"expiration_date": *filter.ExpirationFrom})
	}
	if filter.ExpirationTo != nil {
		builder = builder.Where(sq.LtOrEq{"expiration_date": *filter.ExpirationTo})
	}
	if filter.RequiredBy != nil {
		builder = builder.Where(sq.LtOrEq{"required_date": *filter.RequiredBy})
	}
	if filter.RenewalFrom != nil {
		builder = builder.Where(sq.GtOrEq{"next_renewal_date": *filter.RenewalFrom})
	}
	if filter.RenewalTo != nil {
		builder = builder.Where(sq.LtOrEq{"next_renewal_date": *filter.RenewalTo})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build requirement query: %w", err)
	}
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	defer rows.Close()

	var out []*models.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requirements: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]id.UserID, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `SELECT DISTINCT user_id FROM requirements ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list requirement users: %w", err)
	}
	defer rows.Close()

	var out []id.UserID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan requirement user: %w", err)
		}
		out = append(out, id.UserID(u))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requirement users: %w", err)
	}
	return out, nil
}

// RecordReminderSent increments the counter in place so concurrent senders
// never lose an increment.
func (s *PostgresStore) RecordReminderSent(ctx context.Context, reqID id.RequirementID, sentAt time.Time) error {
	query := `
		UPDATE requirements
		SET reminder_sent_count = reminder_sent_count + 1,
			last_reminder_sent = $2,
			updated_at = $2
		WHERE id = $1
	`
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, query, uuid.UUID(reqID), sentAt)
	if err != nil {
		return fmt.Errorf("record reminder sent: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Expire(ctx context.Context, reqID id.RequirementID, today, at time.Time) (bool, error) {
	query := `
		UPDATE requirements
		SET status = 'expired', updated_at = $3
		WHERE id = $1
			AND status IN ('submitted', 'approved')
			AND expiration_date < $2
	`
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, query, uuid.UUID(reqID), today, at)
	if err != nil {
		return false, fmt.Errorf("expire requirement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("expire requirement: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) ExpireLapsed(ctx context.Context, today, at time.Time) ([]id.RequirementID, error) {
	query := `
		UPDATE requirements
		SET status = 'expired', updated_at = $2
		WHERE status IN ('submitted', 'approved')
			AND expiration_date < $1
		RETURNING id
	`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, today, at)
	if err != nil {
		return nil, fmt.Errorf("expire lapsed requirements: %w", err)
	}
	defer rows.Close()

	var out []id.RequirementID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan expired requirement: %w", err)
		}
		out = append(out, id.RequirementID(u))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired requirements: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequirement(row rowScanner) (*models.Requirement, error) {
	var (
		reqID, userID, docTypeID uuid.UUID
		status                   string
		required                 time.Time
		expiration, renewal      sql.NullTime
		lastSent                 sql.NullTime
		req                      models.Requirement
	)
	err := row.Scan(&reqID, &userID, &docTypeID, &required, &status, &expiration,
		&renewal, &req.ReminderSentCount, &lastSent, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	req.ID = id.RequirementID(reqID)
	req.UserID = id.UserID(userID)
	req.DocumentTypeID = id.DocumentTypeID(docTypeID)
	req.RequiredDate = calendar.Normalize(required)
	req.Status = models.RequirementStatus(status)
	req.ExpirationDate = civilDate(expiration)
	req.NextRenewalDate = civilDate(renewal)
	if lastSent.Valid {
		req.LastReminderSent = &lastSent.Time
	}
	return &req, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func civilDate(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	d := calendar.Normalize(v.Time)
	return &d
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
