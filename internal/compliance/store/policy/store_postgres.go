package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dossier/internal/compliance/models"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/sentinel"
	"dossier/pkg/platform/tx"
)

const policyColumns = `id, name, is_mandatory, validity_period_months, reminder_before_days,
	urgent_reminder_days, has_renewal, renewal_period, renewal_unit`

// PostgresStore reads document type policies from the document_types table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, p *models.DocumentTypePolicy) error {
	if p == nil {
		return fmt.Errorf("document type policy is required")
	}
	query := `
		INSERT INTO document_types (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			is_mandatory = EXCLUDED.is_mandatory,
			validity_period_months = EXCLUDED.validity_period_months,
			reminder_before_days = EXCLUDED.reminder_before_days,
			urgent_reminder_days = EXCLUDED.urgent_reminder_days,
			has_renewal = EXCLUDED.has_renewal,
			renewal_period = EXCLUDED.renewal_period,
			renewal_unit = EXCLUDED.renewal_unit
	`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.Name,
		p.IsMandatory,
		nullInt(p.ValidityPeriodMonths),
		p.ReminderBeforeDays,
		p.UrgentReminderDays,
		p.HasRenewal,
		nullInt(p.RenewalPeriod),
		sql.NullString{String: string(p.RenewalUnit), Valid: p.RenewalUnit != ""},
	)
	if err != nil {
		return fmt.Errorf("save document type: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docType id.DocumentTypeID) (*models.DocumentTypePolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM document_types WHERE id = $1`
	p, err := scanPolicy(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(docType)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document type: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPolicies(ctx context.Context) (models.PolicySet, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `SELECT `+policyColumns+` FROM document_types`)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer rows.Close()

	set := make(models.PolicySet)
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		set[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document types: %w", err)
	}
	return set, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*models.DocumentTypePolicy, error) {
	var (
		docType          uuid.UUID
		validity, period sql.NullInt32
		unit             sql.NullString
		p                models.DocumentTypePolicy
	)
	err := row.Scan(&docType, &p.Name, &p.IsMandatory, &validity, &p.ReminderBeforeDays,
		&p.UrgentReminderDays, &p.HasRenewal, &period, &unit)
	if err != nil {
		return nil, err
	}
	p.ID = id.DocumentTypeID(docType)
	p.ValidityPeriodMonths = intPtr(validity)
	p.RenewalPeriod = intPtr(period)
	p.RenewalUnit = models.RenewalUnit(unit.String)
	return &p, nil
}

func intPtr(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int32)
	return &n
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}
