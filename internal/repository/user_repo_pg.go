package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/flatstay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListAdmins(ctx context.Context) ([]domain.User, error)
}

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

const userColumns = `id, name, email, phone, role, verification, created_at, updated_at`

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Verification, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGUserRepository) ListAdmins(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role=$1`, domain.UserRoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Verification, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, u)
	}
	return admins, rows.Err()
}

var _ UserRepository = (*PGUserRepository)(nil)
