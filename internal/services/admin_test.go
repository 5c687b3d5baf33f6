package services_test

import (
	"context"
	"testing"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/services"
	"github.com/abrezinsky/voterreg/pkg/recordstore"
)

func newAdminService(admins ...models.Admin) (*services.AdminService, *recordstore.MockClient) {
	client := recordstore.NewMockClient(recordstore.WithAdmins(admins))
	return services.NewAdminService(discard, client), client
}

var root = models.Admin{ID: "root", Email: "root@example.gm", Password: "correct horse"}

func TestAdminService_CreateAdmin(t *testing.T) {
	svc, _ := newAdminService(root)
	ctx := context.Background()

	created, err := svc.CreateAdmin(ctx, models.Admin{ID: " ops ", Email: "Ops@Example.gm", Password: "long enough"})
	if err != nil {
		t.Fatalf("CreateAdmin failed: %v", err)
	}
	if created.ID != "ops" || created.Email != "ops@example.gm" || created.Password != "" || !created.IsAdmin {
		t.Errorf("unexpected admin %+v", created)
	}

	tests := []struct {
		name  string
		admin models.Admin
		kind  errors.Kind
	}{
		{"missing id", models.Admin{Email: "x@example.gm", Password: "long enough"}, errors.ErrValidation},
		{"bad email", models.Admin{ID: "x", Email: "nope", Password: "long enough"}, errors.ErrValidation},
		{"short password", models.Admin{ID: "x", Email: "x@example.gm", Password: "short"}, errors.ErrValidation},
		{"duplicate id", models.Admin{ID: "root", Email: "x@example.gm", Password: "long enough"}, errors.ErrDuplicate},
		{"duplicate email", models.Admin{ID: "x", Email: "ROOT@example.gm", Password: "long enough"}, errors.ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAdmin(ctx, tt.admin)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestAdminService_DeleteAdmin(t *testing.T) {
	svc, _ := newAdminService(root, models.Admin{ID: "ops", Email: "ops@example.gm", Password: "long enough"})
	ctx := context.Background()

	if err := svc.DeleteAdmin(ctx, "ops"); err != nil {
		t.Fatalf("DeleteAdmin failed: %v", err)
	}
	if err := svc.DeleteAdmin(ctx, "root"); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("expected last-admin conflict, got %v", err)
	}
	if err := svc.DeleteAdmin(ctx, " "); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	admins, _ := svc.ListAdmins(ctx)
	if len(admins) != 1 {
		t.Errorf("expected 1 admin left, got %d", len(admins))
	}
}

func TestAdminService_Login(t *testing.T) {
	svc, client := newAdminService(root)
	ctx := context.Background()

	admin, err := svc.Login(ctx, " Root@Example.gm ", "correct horse")
	if err != nil || admin.ID != "root" {
		t.Fatalf("expected login, got %+v (%v)", admin, err)
	}

	for _, pw := range []string{"", "wrong"} {
		if _, err := svc.Login(ctx, "root@example.gm", pw); err != services.ErrInvalidCredentials {
			t.Errorf("password %q: expected ErrInvalidCredentials, got %v", pw, err)
		}
	}

	client.SetOnline(false)
	if _, err := svc.Login(ctx, "root@example.gm", "correct horse"); !errors.IsRetryable(err) {
		t.Errorf("expected store outage to surface, got %v", err)
	}
}
