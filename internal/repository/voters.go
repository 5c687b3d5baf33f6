package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/models"
)

const voterColumns = `id, full_name, email, date_of_birth, gender, organization,
	region, constituency, id_type, id_number, agreed_to_terms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoter(row rowScanner) (*models.Voter, error) {
	var v models.Voter
	var gender, idType string
	if err := row.Scan(&v.ID, &v.FullName, &v.Email, &v.DateOfBirth, &gender,
		&v.Organization, &v.Region, &v.Constituency, &idType, &v.IDNumber,
		&v.AgreedToTerms, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Gender = models.Gender(gender)
	v.IDType = models.IDType(idType)
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, nil
}

// ListVoters returns all voters in registration order
func (r *Repository) ListVoters(ctx context.Context) ([]models.Voter, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+voterColumns+` FROM voters ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voters := []models.Voter{}
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, err
		}
		voters = append(voters, *v)
	}
	return voters, rows.Err()
}

// GetVoter retrieves a voter by id
func (r *Repository) GetVoter(ctx context.Context, id string) (*models.Voter, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+voterColumns+` FROM voters WHERE id = ?`), id)
	v, err := scanVoter(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return v, err
}

// InsertVoter creates a voter. The id and email must both be unused.
func (r *Repository) InsertVoter(ctx context.Context, v models.Voter) (*models.Voter, error) {
	if v.ID == "" || v.Email == "" {
		return nil, errors.Validation("voter id and email are required")
	}
	v.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO voters (id, full_name, email, date_of_birth, gender, organization,
			region, constituency, id_type, id_number, agreed_to_terms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), v.ID, v.FullName, v.Email, v.DateOfBirth, string(v.Gender), v.Organization,
		v.Region, v.Constituency, string(v.IDType), v.IDNumber, v.AgreedToTerms, v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Duplicatef("voter %s or email %s already registered", v.ID, v.Email)
		}
		return nil, err
	}
	return &v, nil
}

// DeleteVoter deletes a voter
func (r *Repository) DeleteVoter(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM voters WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
