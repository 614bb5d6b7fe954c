package users

import (
	"context"
	"errors"
	"fmt"

	"livraison-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines data access for accounts.
type RepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string, role models.Role) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, data models.UserUpdateData) (*models.User, error)
	SetOnline(ctx context.Context, id string, online bool) error
	SetAccountStatus(ctx context.Context, id string, status models.AccountStatus) error
	ListByRole(ctx context.Context, role models.Role, page, limit int) ([]*models.User, int, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userColumns = `
	id, role, status, phone, email, full_name, password_hash,
	vehicle_class, online, rating, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, role, status, phone, email, full_name, password_hash, vehicle_class)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''))
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Role, user.Status, user.Phone, user.Email,
		user.FullName, user.PasswordHash, string(user.VehicleClass),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrConflict
		}
		return fmt.Errorf("repository.CreateUser: %w", err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FindByPhone is role-scoped: the same phone number may own both a client and
// a livreur account.
func (r *Repository) FindByPhone(ctx context.Context, phone string, role models.Role) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE phone = $1 AND role = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, phone, role))
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *Repository) Update(ctx context.Context, id string, data models.UserUpdateData) (*models.User, error) {
	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
		    email = COALESCE($3, email),
		    vehicle_class = COALESCE($4, vehicle_class),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING` + userColumns
	return r.scanOne(r.db.QueryRow(ctx, query, id, data.FullName, data.Email, data.VehicleClass))
}

func (r *Repository) SetOnline(ctx context.Context, id string, online bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE users SET online = $2, updated_at = NOW() WHERE id = $1 AND role = $3`,
		id, online, models.RoleLivreur)
	if err != nil {
		return fmt.Errorf("repository.SetOnline: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) SetAccountStatus(ctx context.Context, id string, status models.AccountStatus) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("repository.SetAccountStatus: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) ListByRole(ctx context.Context, role models.Role, page, limit int) ([]*models.User, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListByRole: count: %w", err)
	}

	query := `
		SELECT` + userColumns + `
		FROM users
		WHERE role = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, role, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByRole: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListByRole.Scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.ListByRole: %w", err)
	}
	return users, total, nil
}

func (r *Repository) scanOne(row pgx.Row) (*models.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.scanUser: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var phone, email, fullName, passwordHash, vehicleClass *string
	err := row.Scan(
		&u.ID, &u.Role, &u.Status, &phone, &email, &fullName, &passwordHash,
		&vehicleClass, &u.Online, &u.Rating, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		u.Phone = *phone
	}
	if email != nil {
		u.Email = *email
	}
	if fullName != nil {
		u.FullName = *fullName
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if vehicleClass != nil {
		u.VehicleClass = models.VehicleClass(*vehicleClass)
	}
	return &u, nil
}
