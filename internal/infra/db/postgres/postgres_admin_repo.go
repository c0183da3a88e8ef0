package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/model"
	"appointment-booking/internal/domain/ports/repository"
)

var _ repository.AdminRepository = (*PostgresAdminRepo)(nil)

type PostgresAdminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) *PostgresAdminRepo {
	return &PostgresAdminRepo{pool: pool}
}

const adminColumns = `id, name, gender, email, password_hash, country, phone, role,
       reset_otp_hash, reset_otp_expires_at, created_at, updated_at`

func (r *PostgresAdminRepo) Save(ctx context.Context, tx repository.Tx, a *model.Admin) error {
	const q = `
INSERT INTO admins (` + adminColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  name=$2, gender=$3, email=$4, password_hash=$5, country=$6, phone=$7, role=$8,
  reset_otp_hash=$9, reset_otp_expires_at=$10, updated_at=$12;
`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Name, string(a.Gender), a.Email, a.PasswordHash,
		a.Country, a.Phone, string(a.Role), a.ResetOTPHash, a.ResetOTPExp, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); errors.Is(mapped, domain.ErrAlreadyExists) {
			return mapped
		}
		return fmt.Errorf("save admin: %w", err)
	}
	return nil
}

func (r *PostgresAdminRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Admin, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	var a model.Admin
	var gender, role string
	if err := row.Scan(&a.ID, &a.Name, &gender, &a.Email, &a.PasswordHash, &a.Country, &a.Phone, &role,
		&a.ResetOTPHash, &a.ResetOTPExp, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	a.Gender, a.Role = model.Gender(gender), model.Role(role)
	return &a, nil
}

func (r *PostgresAdminRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Admin, error) {
	return r.findOne(ctx, tx, `SELECT `+adminColumns+` FROM admins WHERE id=$1;`, id)
}

func (r *PostgresAdminRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Admin, error) {
	return r.findOne(ctx, tx, `SELECT `+adminColumns+` FROM admins WHERE email=$1;`, model.NormalizeEmail(email))
}

func (r *PostgresAdminRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	ct, err := execSQL(ctx, r.pool, tx, `DELETE FROM admins WHERE id=$1;`, id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
