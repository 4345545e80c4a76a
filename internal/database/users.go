package database

import (
	"context"
	"errors"
	"hr-admin-api/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrUserExists = errors.New("username or email already exists")

const userColumns = `
	id,
	username,
	email,
	password_hash,
	role,
	first_name,
	last_name,
	avatar,
	active,
	reset_token,
	reset_token_expiry,
	created_at
`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.Avatar,
		&user.Active,
		&user.ResetToken,
		&user.ResetTokenExpiry,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

type CreateUserParams struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Role         models.Role
	FirstName    string
	LastName     string
	Avatar       string
	Active       bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, first_name, last_name, avatar, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	row := q.db.QueryRow(ctx, query,
		arg.ID, arg.Username, arg.Email, arg.PasswordHash, arg.Role,
		arg.FirstName, arg.LastName, arg.Avatar, arg.Active,
	)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRow(ctx, query, id))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(q.db.QueryRow(ctx, query, username))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.db.QueryRow(ctx, query, email))
}

// GetUserByUsernameOrEmail matches either identifier in one lookup, the way
// the login and change-password endpoints accept them interchangeably.
func (q *Queries) GetUserByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	return scanUser(q.db.QueryRow(ctx, query, usernameOrEmail))
}

func (q *Queries) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if users == nil {
		return []models.User{}, nil
	}
	return users, nil
}

func (q *Queries) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	query := `UPDATE users SET reset_token = $2, reset_token_expiry = $3 WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, id, token, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ConsumeResetToken swaps in the new password hash and burns the token in a
// single statement: only a row whose token matches and has not expired is
// touched, so a token can never be redeemed twice. Returns false when no row
// matched; callers must not distinguish wrong token from expired token.
func (q *Queries) ConsumeResetToken(ctx context.Context, token string, passwordHash string) (bool, error) {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_expiry = NULL
		WHERE reset_token = $1 AND reset_token_expiry > now()
	`
	tag, err := q.db.Exec(ctx, query, token, passwordHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	query := `UPDATE users SET avatar = $2 WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, id, avatarURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type UpdateUserParams struct {
	ID        uuid.UUID
	Username  *string
	FirstName *string
	LastName  *string
	Role      *models.Role
	Active    *bool
	Avatar    *string
}

// UpdateUserInfo applies a partial update; nil fields keep their value.
func (q *Queries) UpdateUserInfo(ctx context.Context, arg UpdateUserParams) (*models.User, error) {
	query := `
		UPDATE users
		SET
			username   = COALESCE($2, username),
			first_name = COALESCE($3, first_name),
			last_name  = COALESCE($4, last_name),
			role       = COALESCE($5, role),
			active     = COALESCE($6, active),
			avatar     = COALESCE($7, avatar)
		WHERE id = $1
		RETURNING ` + userColumns

	row := q.db.QueryRow(ctx, query,
		arg.ID, arg.Username, arg.FirstName, arg.LastName, arg.Role, arg.Active, arg.Avatar,
	)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM users WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
