package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct {
	q    querier
	lock bool
}

// NewUserRepo constructs a user repository outside of any transaction.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{q: db.Pool} }

const userCols = `id, username, email, pwd_hash, salt_auth, profile_picture_url, points, last_login, created_at, updated_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, pwd_hash, salt_auth, profile_picture_url, points)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, q, u.ID, u.Username, u.Email, u.PwdHash, u.SaltAuth, u.ProfilePictureURL, u.Points).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	return classify(err)
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE id=$1` + forUpdate(r.lock)
	return r.scanOne(ctx, q, id)
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE email=$1`
	return r.scanOne(ctx, q, email)
}

func (r *UserRepo) scanOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.q.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PwdHash, &u.SaltAuth, &u.ProfilePictureURL,
		&u.Points, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

// AdjustPoints applies delta in one conditional statement so the balance never goes negative.
func (r *UserRepo) AdjustPoints(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	const q = `
UPDATE users
SET points = points + $2, updated_at = now()
WHERE id = $1 AND points + $2 >= 0
RETURNING points`
	var balance int64
	err := r.q.QueryRow(ctx, q, id, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if err = classify(err); !errors.Is(err, errs.ErrNotFound) {
		return 0, err
	}
	return 0, missingOr(ctx, r.q, "users", id, errs.ErrInsufficientPoints)
}

// SetLastLogin stores the login timestamp.
func (r *UserRepo) SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE users SET last_login=$2, updated_at=now() WHERE id=$1`
	tag, err := r.q.Exec(ctx, q, id, at)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AdminRepo implements AdminRepository using PostgreSQL.
type AdminRepo struct {
	q    querier
	lock bool
}

const adminCols = `id, username, email, pwd_hash, salt_auth, approved, approved_by, created_at`

// Create inserts an admin row.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	const q = `
INSERT INTO admins (id, username, email, pwd_hash, salt_auth, approved)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`
	err := r.q.QueryRow(ctx, q, a.ID, a.Username, a.Email, a.PwdHash, a.SaltAuth, a.Approved).Scan(&a.CreatedAt)
	return classify(err)
}

// GetByID selects an admin by ID.
func (r *AdminRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error) {
	return r.scanOne(ctx, `SELECT `+adminCols+` FROM admins WHERE id=$1`+forUpdate(r.lock), id)
}

// GetByEmail selects an admin by email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return r.scanOne(ctx, `SELECT `+adminCols+` FROM admins WHERE email=$1`, email)
}

func (r *AdminRepo) scanOne(ctx context.Context, q string, arg any) (*model.Admin, error) {
	var a model.Admin
	err := r.q.QueryRow(ctx, q, arg).Scan(
		&a.ID, &a.Username, &a.Email, &a.PwdHash, &a.SaltAuth, &a.Approved, &a.ApprovedBy, &a.CreatedAt,
	)
	if err != nil {
		return nil, classify(err)
	}
	return &a, nil
}

// ListPending returns unapproved admins, oldest first.
func (r *AdminRepo) ListPending(ctx context.Context) ([]model.Admin, error) {
	const q = `SELECT ` + adminCols + ` FROM admins WHERE approved=false ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []model.Admin
	for rows.Next() {
		var a model.Admin
		if err = rows.Scan(&a.ID, &a.Username, &a.Email, &a.PwdHash, &a.SaltAuth, &a.Approved, &a.ApprovedBy, &a.CreatedAt); err != nil {
			return nil, classify(err)
		}
		out = append(out, a)
	}
	return out, classify(rows.Err())
}

// Approve flips approved only for a currently unapproved admin.
func (r *AdminRepo) Approve(ctx context.Context, id, approverID uuid.UUID) error {
	const q = `UPDATE admins SET approved=true, approved_by=$2 WHERE id=$1 AND approved=false`
	tag, err := r.q.Exec(ctx, q, id, approverID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return missingOr(ctx, r.q, "admins", id, errs.ErrPreconditionFailed)
	}
	return nil
}
