package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/models"
)

// ListAdmins returns all admins without password hashes
func (r *Repository) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, is_admin FROM admins ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []models.Admin{}
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.ID, &a.Email, &a.IsAdmin); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// CreateAdmin hashes the password and stores a new admin
func (r *Repository) CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error) {
	return r.createAdmin(ctx, r.db, a)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) createAdmin(ctx context.Context, db execer, a models.Admin) (*models.Admin, error) {
	a.ID = strings.TrimSpace(a.ID)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if a.ID == "" || a.Email == "" || a.Password == "" {
		return nil, errors.Validation("admin id, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal(err)
	}

	_, err = db.ExecContext(ctx, r.q(`
		INSERT INTO admins (id, email, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), a.ID, a.Email, string(hash), true, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Duplicatef("admin %s or email %s already exists", a.ID, a.Email)
		}
		return nil, err
	}

	a.Password = ""
	a.IsAdmin = true
	return &a, nil
}

// DeleteAdmin removes an admin, refusing to remove the last one
func (r *Repository) DeleteAdmin(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM admins WHERE id = ?`), id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&total); err != nil {
		return err
	}
	if total <= 1 {
		return ErrLastAdmin
	}

	if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM admins WHERE id = ?`), id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddInitialAdmins seeds admins when the table is empty
func (r *Repository) AddInitialAdmins(ctx context.Context, admins []models.Admin) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&total); err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}

	for _, a := range admins {
		if _, err := r.createAdmin(ctx, tx, a); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(admins), nil
}

// AdminLogin checks credentials and returns the admin on success
func (r *Repository) AdminLogin(ctx context.Context, email, password string) (*models.Admin, error) {
	var a models.Admin
	var hash string
	err := r.db.QueryRowContext(ctx, r.q(`
		SELECT id, email, password_hash, is_admin FROM admins WHERE email = ?
	`), strings.ToLower(strings.TrimSpace(email))).Scan(&a.ID, &a.Email, &hash, &a.IsAdmin)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &a, nil
}
