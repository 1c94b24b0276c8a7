// Command seed loads demo policies, people and requirements into PostgreSQL
// and prints bearer tokens for local use.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"dossier/internal/compliance/models"
	"dossier/internal/compliance/store/document"
	"dossier/internal/compliance/store/policy"
	"dossier/internal/compliance/store/requirement"
	"dossier/internal/jwt_token"
	"dossier/internal/notification/store/directory"
	"dossier/internal/platform/config"
	"dossier/internal/platform/logger"
	"dossier/internal/platform/postgres"
	"dossier/pkg/calendar"
	id "dossier/pkg/domain"
	"dossier/pkg/platform/tx"
)

type person struct {
	id    id.UserID
	email string
	name  string
	role  string
}

// newPerson derives the id from the email so reseeding reuses existing users.
func newPerson(email, name, role string) person {
	return person{
		id:    id.UserID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email))),
		email: email,
		name:  name,
		role:  role,
	}
}

func main() {
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed bearer tokens")
	flag.Parse()

	if err := run(*tokenTTL); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(tokenTTL time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	if cfg.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required to seed")
	}
	loc, err := cfg.Reminder.Location()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db, log); err != nil {
		return err
	}

	admin := newPerson("admin@dossier.local", "Administración", directory.RoleAdmin)
	staff := []person{
		newPerson("ana.lopez@dossier.local", "Ana López", "employee"),
		newPerson("jorge.ramirez@dossier.local", "Jorge Ramírez", "employee"),
	}
	policies := demoPolicies()
	today := calendar.Day(time.Now(), loc)

	err = tx.Run(ctx, db, func(ctx context.Context) error {
		if err := insertPeople(ctx, db, append([]person{admin}, staff...)); err != nil {
			return err
		}
		return seed(ctx, db, staff, policies, today)
	})
	if err != nil {
		return err
	}
	log.Info("demo data seeded", "people", len(staff)+1, "policies", len(policies), "date", today.Format(time.DateOnly))

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	for _, p := range append([]person{admin}, staff...) {
		tok, err := tokens.GenerateAccessToken(p.id, p.role, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Printf("%-30s %-8s %s\n", p.email, p.role, tok)
	}
	return nil
}

func seed(ctx context.Context, db *sql.DB, staff []person, policies []*models.DocumentTypePolicy, today time.Time) error {
	policyStore := policy.NewPostgres(db)
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return err
		}
		if err := policyStore.Save(ctx, p); err != nil {
			return fmt.Errorf("save policy %s: %w", p.Name, err)
		}
	}

	requirements := requirement.NewPostgres(db)
	documents := document.NewPostgres(db)
	for _, r := range demoRequirements(staff, policies, today) {
		if err := requirements.Save(ctx, r); err != nil {
			return fmt.Errorf("save requirement: %w", err)
		}
		if r.Status != models.StatusApproved {
			continue
		}
		doc := &models.Document{
			ID:             id.NewDocumentID(),
			UserID:         r.UserID,
			DocumentTypeID: r.DocumentTypeID,
			Status:         models.DocumentActive,
			ExpirationDate: r.ExpirationDate,
		}
		if err := documents.Save(ctx, doc); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
	}
	return nil
}

func insertPeople(ctx context.Context, db *sql.DB, people []person) error {
	q := sq.Insert("users").
		Columns("id", "email", "full_name", "role", "is_active").
		PlaceholderFormat(sq.Dollar).
		Suffix("ON CONFLICT (email) DO NOTHING")
	for _, p := range people {
		q = q.Values(uuid.UUID(p.id), p.email, p.name, p.role, true)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build users insert: %w", err)
	}
	if _, err := tx.Conn(ctx, db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	return nil
}

func intp(n int) *int { return &n }

func docTypeID(name string) id.DocumentTypeID {
	return id.DocumentTypeID(uuid.NewSHA1(uuid.NameSpaceOID, []byte("dossier/document-type/"+name)))
}

func demoPolicies() []*models.DocumentTypePolicy {
	return []*models.DocumentTypePolicy{
		{
			ID:                   docTypeID("Licencia de conducir"),
			Name:                 "Licencia de conducir",
			IsMandatory:          true,
			ValidityPeriodMonths: intp(12),
			ReminderBeforeDays:   30,
			UrgentReminderDays:   7,
		},
		{
			ID:                 docTypeID("Comprobante de domicilio"),
			Name:               "Comprobante de domicilio",
			IsMandatory:        true,
			ReminderBeforeDays: 15,
			UrgentReminderDays: 3,
		},
		{
			ID:                   docTypeID("Certificado médico"),
			Name:                 "Certificado médico",
			ValidityPeriodMonths: intp(6),
			ReminderBeforeDays:   30,
			UrgentReminderDays:   7,
			HasRenewal:           true,
			RenewalPeriod:        intp(6),
			RenewalUnit:          models.RenewalMonths,
		},
	}
}

// demoRequirements covers every reminder pass relative to today.
func demoRequirements(staff []person, policies []*models.DocumentTypePolicy, today time.Time) []*models.Requirement {
	license, address, medical := policies[0], policies[1], policies[2]
	day := func(n int) *time.Time {
		d := calendar.AddDays(today, n)
		return &d
	}
	newReq := func(u person, p *models.DocumentTypePolicy, status models.RequirementStatus, requiredIn int) *models.Requirement {
		return &models.Requirement{
			ID:             id.NewRequirementID(),
			UserID:         u.id,
			DocumentTypeID: p.ID,
			RequiredDate:   *day(requiredIn),
			Status:         status,
			CreatedAt:      today,
			UpdatedAt:      today,
		}
	}

	ana, jorge := staff[0], staff[1]

	expiringSoon := newReq(ana, license, models.StatusApproved, -360)
	expiringSoon.ExpirationDate = day(5)

	lapsed := newReq(jorge, license, models.StatusApproved, -400)
	lapsed.ExpirationDate = day(-1)

	pendingDue := newReq(ana, address, models.StatusPending, 1)
	pendingOverdue := newReq(jorge, address, models.StatusPending, -4)

	renewal := newReq(ana, medical, models.StatusApproved, -170)
	renewal.ExpirationDate = day(40)
	renewal.NextRenewalDate = day(3)

	return []*models.Requirement{expiringSoon, lapsed, pendingDue, pendingOverdue, renewal}
}
