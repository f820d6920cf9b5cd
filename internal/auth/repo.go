package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RoleMember = "member"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleMember:
		return true
	}
	return false
}

// User is the identity record owned by the auth provider. Review and
// feedback code only reads it.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name,omitempty"`
	Email           string     `json:"email,omitempty"`
	Image           string     `json:"image,omitempty"`
	EmailVerifiedAt *time.Time `json:"emailVerificationTime,omitempty"`
	IsAnonymous     bool       `json:"isAnonymous"`
	Role            string     `json:"role,omitempty"`
	PasswordHash    string     `json:"-"`
	TokenVersion    int        `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func (u *User) Caller() *Caller {
	return &Caller{ID: u.ID, Name: u.Name, Email: u.Email}
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, name, email, image, email_verification_time, is_anonymous, role, password_hash, token_version, created_at`

// CreateUser inserts u. An empty role is stored as NULL; any other role must
// be one of the known ones.
func (r *Repo) CreateUser(ctx context.Context, u User) error {
	if u.Role != "" && !ValidRole(u.Role) {
		return fmt.Errorf("create user: unknown role %q", u.Role)
	}
	var verified any
	if u.EmailVerifiedAt != nil {
		verified = u.EmailVerifiedAt.UTC()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, image, email_verification_time, is_anonymous, role, password_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, nullString(u.Name), nullString(strings.ToLower(u.Email)), nullString(u.Image),
		verified, u.IsAnonymous, nullString(u.Role), u.PasswordHash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get by email: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return u, nil
}

// First returns the earliest registered user, or nil when there are none.
func (r *Repo) First(ctx context.Context) (*User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq ASC LIMIT 1`)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get first user: %w", err)
	}
	return u, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update password: user not found")
	}
	return nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bump token version: user not found")
	}
	return nil
}

// scanUser returns nil, nil when the row does not exist.
func scanUser(row *sql.Row) (*User, error) {
	var (
		u                  User
		name, email, image sql.NullString
		role               sql.NullString
		verified           sql.NullTime
	)
	err := row.Scan(&u.ID, &name, &email, &image, &verified, &u.IsAnonymous, &role,
		&u.PasswordHash, &u.TokenVersion, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	u.Name = name.String
	u.Email = email.String
	u.Image = image.String
	u.Role = role.String
	if verified.Valid {
		t := verified.Time
		u.EmailVerifiedAt = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
