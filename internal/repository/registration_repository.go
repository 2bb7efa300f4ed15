package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/registration-service/internal/domain"
)

// ErrNotFound is returned when no registration matches the given key.
var ErrNotFound = errors.New("registration not found")

// ErrStaleStatus is returned by UpdateStatusFrom when the stored status no
// longer matches the expected one, i.e. a concurrent decision won the race.
var ErrStaleStatus = errors.New("registration status changed concurrently")

// StatusFilter narrows listing to the given statuses; empty means all.
type StatusFilter struct {
	Statuses []domain.RegistrationStatus
}

// RegistrationRepository encapsulates registration persistence.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *domain.Registration) error
	Update(ctx context.Context, reg *domain.Registration) error
	GetByID(ctx context.Context, id string) (*domain.Registration, error)
	// GetByEmail returns the most recent record for the email, matched
	// case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.Registration, error)
	List(ctx context.Context, filter StatusFilter) ([]domain.Registration, error)
	// UpdateStatusFrom persists the record's status fields only when the
	// stored status still equals expected. This is the compare-and-swap that
	// keeps concurrent approve/reject calls from both succeeding.
	UpdateStatusFrom(ctx context.Context, reg *domain.Registration, expected domain.RegistrationStatus) error
}

type registrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository returns a Postgres-backed implementation.
func NewRegistrationRepository(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepository{pool: pool}
}

const registrationColumns = `id, email, user_type, name, department, year, mobile_number,
               status, rejection_reason, credential_id, password_hash,
               submitted_at, reviewed_at, reviewed_by, created_at, updated_at`

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	const query = `
        INSERT INTO pending_registrations (email, user_type, name, department, year, mobile_number, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, submitted_at, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		domain.NormalizeEmail(reg.Email),
		reg.UserType,
		reg.Name,
		reg.Department,
		reg.Year,
		reg.MobileNumber,
		reg.Status,
	).Scan(&reg.ID, &reg.SubmittedAt, &reg.CreatedAt, &reg.UpdatedAt)
}

func (r *registrationRepository) Update(ctx context.Context, reg *domain.Registration) error {
	const query = `
        UPDATE pending_registrations
        SET user_type=$1, name=$2, department=$3, year=$4, mobile_number=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		reg.UserType,
		reg.Name,
		reg.Department,
		reg.Year,
		reg.MobileNumber,
		reg.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_registrations WHERE id=$1`, registrationColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *registrationRepository) GetByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM pending_registrations
        WHERE LOWER(email)=$1
        ORDER BY submitted_at DESC
        LIMIT 1`, registrationColumns)
	return r.fetchSingle(ctx, query, domain.NormalizeEmail(email))
}

func (r *registrationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Registration, error) {
	var reg domain.Registration
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&reg.ID,
		&reg.Email,
		&reg.UserType,
		&reg.Name,
		&reg.Department,
		&reg.Year,
		&reg.MobileNumber,
		&reg.Status,
		&reg.RejectionReason,
		&reg.CredentialID,
		&reg.PasswordHash,
		&reg.SubmittedAt,
		&reg.ReviewedAt,
		&reg.ReviewedBy,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) List(ctx context.Context, filter StatusFilter) ([]domain.Registration, error) {
	base := fmt.Sprintf(`SELECT %s FROM pending_registrations`, registrationColumns)
	args := []any{}
	clause := ""

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clause = fmt.Sprintf(" WHERE status IN (%s)", strings.Join(placeholders, ","))
	}

	query := base + clause + " ORDER BY submitted_at DESC"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

func (r *registrationRepository) UpdateStatusFrom(ctx context.Context, reg *domain.Registration, expected domain.RegistrationStatus) error {
	const query = `
        UPDATE pending_registrations
        SET status=$1, rejection_reason=$2, credential_id=$3, password_hash=$4,
            reviewed_at=$5, reviewed_by=$6, updated_at=NOW()
        WHERE id=$7 AND status=$8`
	cmd, err := r.pool.Exec(ctx, query,
		reg.Status,
		reg.RejectionReason,
		reg.CredentialID,
		reg.PasswordHash,
		reg.ReviewedAt,
		reg.ReviewedBy,
		reg.ID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a lost race from a missing record.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pending_registrations WHERE id=$1)`, reg.ID,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrStaleStatus
		}
		return ErrNotFound
	}
	return nil
}

func scanRegistrations(rows pgx.Rows) ([]domain.Registration, error) {
	var result []domain.Registration
	for rows.Next() {
		var reg domain.Registration
		if err := rows.Scan(
			&reg.ID,
			&reg.Email,
			&reg.UserType,
			&reg.Name,
			&reg.Department,
			&reg.Year,
			&reg.MobileNumber,
			&reg.Status,
			&reg.RejectionReason,
			&reg.CredentialID,
			&reg.PasswordHash,
			&reg.SubmittedAt,
			&reg.ReviewedAt,
			&reg.ReviewedBy,
			&reg.CreatedAt,
			&reg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, reg)
	}
	return result, rows.Err()
}
