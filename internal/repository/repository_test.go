package repository

import (
	"context"
	"testing"
	"time"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/models"
)

// newTestRepo creates a new in-memory repository for testing.
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testVoter(id, email string) models.Voter {
	return models.Voter{
		ID:            id,
		FullName:      "Lamin Ceesay",
		Email:         email,
		DateOfBirth:   "1988-11-02",
		Gender:        models.GenderMale,
		Organization:  "UTG",
		Region:        "Kanifing",
		Constituency:  "Bakau",
		IDType:        models.IDPassportNumber,
		IDNumber:      "998877",
		AgreedToTerms: true,
	}
}

// ==================== Voter Tests ====================

func TestInsertVoter_AssignsCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	v, err := repo.InsertVoter(ctx, testVoter("v-1", "lamin@example.gm"))
	if err != nil {
		t.Fatalf("InsertVoter failed: %v", err)
	}
	if v.CreatedAt.Before(before) {
		t.Errorf("expected server-assigned created_at, got %v", v.CreatedAt)
	}

	got, err := repo.GetVoter(ctx, "v-1")
	if err != nil {
		t.Fatalf("GetVoter failed: %v", err)
	}
	if got.Email != "lamin@example.gm" || got.Gender != models.GenderMale || !got.AgreedToTerms {
		t.Errorf("unexpected voter round trip: %+v", got)
	}
	if got.IDType != models.IDPassportNumber {
		t.Errorf("expected id type passport_number, got %q", got.IDType)
	}
}

func TestInsertVoter_Duplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.InsertVoter(ctx, testVoter("v-1", "a@b.com")); err != nil {
		t.Fatalf("InsertVoter failed: %v", err)
	}

	tests := []struct {
		name  string
		voter models.Voter
	}{
		{"same email", testVoter("v-2", "a@b.com")},
		{"same id", testVoter("v-1", "other@b.com")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.InsertVoter(ctx, tt.voter)
			if !errors.Is(err, errors.ErrDuplicate) {
				t.Errorf("expected duplicate error, got %v", err)
			}
		})
	}
}

func TestInsertVoter_RequiresIDAndEmail(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.InsertVoter(context.Background(), testVoter("", "a@b.com"))
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestListVoters_OldestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	voters, err := repo.ListVoters(ctx)
	if err != nil {
		t.Fatalf("ListVoters failed: %v", err)
	}
	if voters == nil || len(voters) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", voters)
	}

	for _, id := range []string{"first", "second", "third"} {
		if _, err := repo.InsertVoter(ctx, testVoter(id, id+"@b.com")); err != nil {
			t.Fatalf("InsertVoter failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	voters, err = repo.ListVoters(ctx)
	if err != nil {
		t.Fatalf("ListVoters failed: %v", err)
	}
	if len(voters) != 3 {
		t.Fatalf("expected 3 voters, got %d", len(voters))
	}
	for i, want := range []string{"first", "second", "third"} {
		if voters[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, voters[i].ID)
		}
	}
}

func TestDeleteVoter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.InsertVoter(ctx, testVoter("v-1", "a@b.com"))

	if err := repo.DeleteVoter(ctx, "v-1"); err != nil {
		t.Fatalf("DeleteVoter failed: %v", err)
	}
	if _, err := repo.GetVoter(ctx, "v-1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteVoter(ctx, "v-1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

// ==================== Admin Tests ====================

func TestCreateAdmin_HashesPassword(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.CreateAdmin(ctx, models.Admin{ID: "root", Email: " Root@Example.GM ", Password: "s3cret"})
	if err != nil {
		t.Fatalf("CreateAdmin failed: %v", err)
	}
	if a.Password != "" {
		t.Error("password must not be returned")
	}
	if a.Email != "root@example.gm" {
		t.Errorf("expected normalized email, got %q", a.Email)
	}

	var hash string
	repo.DB().QueryRow(`SELECT password_hash FROM admins WHERE id = 'root'`).Scan(&hash)
	if hash == "" || hash == "s3cret" {
		t.Errorf("expected a bcrypt hash to be stored, got %q", hash)
	}
}

func TestCreateAdmin_Errors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	repo.CreateAdmin(ctx, models.Admin{ID: "root", Email: "root@example.gm", Password: "pw"})

	tests := []struct {
		name  string
		admin models.Admin
		kind  errors.Kind
	}{
		{"missing password", models.Admin{ID: "x", Email: "x@example.gm"}, errors.ErrValidation},
		{"duplicate id", models.Admin{ID: "root", Email: "new@example.gm", Password: "pw"}, errors.ErrDuplicate},
		{"duplicate email", models.Admin{ID: "other", Email: "ROOT@example.gm", Password: "pw"}, errors.ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateAdmin(ctx, tt.admin)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestDeleteAdmin_RefusesLastAdmin(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.CreateAdmin(ctx, models.Admin{ID: "a", Email: "a@example.gm", Password: "pw"})
	repo.CreateAdmin(ctx, models.Admin{ID: "b", Email: "b@example.gm", Password: "pw"})

	if err := repo.DeleteAdmin(ctx, "a"); err != nil {
		t.Fatalf("DeleteAdmin failed: %v", err)
	}
	if err := repo.DeleteAdmin(ctx, "b"); err != ErrLastAdmin {
		t.Errorf("expected ErrLastAdmin, got %v", err)
	}
	if err := repo.DeleteAdmin(ctx, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	admins, _ := repo.ListAdmins(ctx)
	if len(admins) != 1 || admins[0].ID != "b" {
		t.Errorf("expected only admin b to remain, got %+v", admins)
	}
}

func TestAddInitialAdmins_OnlyWhenEmpty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []models.Admin{
		{ID: "root", Email: "root@example.gm", Password: "pw"},
		{ID: "ops", Email: "ops@example.gm", Password: "pw"},
	}

	n, err := repo.AddInitialAdmins(ctx, seed)
	if err != nil {
		t.Fatalf("AddInitialAdmins failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 admins added, got %d", n)
	}

	n, err = repo.AddInitialAdmins(ctx, []models.Admin{{ID: "late", Email: "late@example.gm", Password: "pw"}})
	if err != nil {
		t.Fatalf("AddInitialAdmins failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no admins added to a populated table, got %d", n)
	}
}

func TestAddInitialAdmins_RollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AddInitialAdmins(ctx, []models.Admin{
		{ID: "root", Email: "root@example.gm", Password: "pw"},
		{ID: "root", Email: "dup@example.gm", Password: "pw"},
	})
	if !errors.Is(err, errors.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	admins, _ := repo.ListAdmins(ctx)
	if len(admins) != 0 {
		t.Errorf("expected rollback to leave no admins, got %d", len(admins))
	}
}

func TestAdminLogin(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	repo.CreateAdmin(ctx, models.Admin{ID: "root", Email: "root@example.gm", Password: "correct horse"})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"valid", "root@example.gm", "correct horse", false},
		{"case-insensitive email", "ROOT@example.gm", "correct horse", false},
		{"wrong password", "root@example.gm", "battery staple", true},
		{"unknown email", "nobody@example.gm", "correct horse", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := repo.AdminLogin(ctx, tt.email, tt.password)
			if tt.wantErr {
				if err != ErrInvalidCredentials {
					t.Errorf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AdminLogin failed: %v", err)
			}
			if a.ID != "root" || !a.IsAdmin {
				t.Errorf("unexpected admin %+v", a)
			}
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "dsn"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	got := rebind(`INSERT INTO admins (id, email) VALUES (?, ?)`)
	want := `INSERT INTO admins (id, email) VALUES ($1, $2)`
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}
}
