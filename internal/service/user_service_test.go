package service

import (
	"context"
	"errors"
	"testing"

	"go-agency-ledger/internal/model"
)

func TestUserService(t *testing.T) {
	af := newAuthFixture(t)
	svc := NewUserService(af.users, af.privileges, af.roles)
	ctx := context.Background()

	admin, err := af.roles.FindByCode(ctx, model.RoleAdmin)
	if err != nil {
		t.Fatalf("role: %v", err)
	}

	user, err := svc.CreateUser(ctx, &CreateUserRequest{
		Email: "clerk@example.com", Password: "clerk123", FullName: "Clerk", RoleID: admin.ID,
	}, "system")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.RoleCode() != model.RoleAdmin || len(user.Privileges) != len(admin.Privileges) {
		t.Errorf("role grant: %s with %d privileges", user.RoleCode(), len(user.Privileges))
	}

	if _, err := svc.CreateUser(ctx, &CreateUserRequest{
		Email: "clerk@example.com", Password: "clerk123", FullName: "Twin", RoleID: admin.ID,
	}, "system"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate email: err = %v", err)
	}
	if _, err := svc.CreateUser(ctx, &CreateUserRequest{
		Email: "other@example.com", Password: "clerk123", FullName: "Other", RoleID: 999,
	}, "system"); !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("unknown role: err = %v", err)
	}
	if _, err := svc.CreateUser(ctx, &CreateUserRequest{
		Email: "not-an-email", Password: "clerk123", FullName: "Other", RoleID: admin.ID,
	}, "system"); !isValidation(err) {
		t.Errorf("bad email: err = %v", err)
	}

	narrowed, err := svc.UpdateUserPrivileges(ctx, user.ID, []string{model.PrivBillView, model.PrivBillCreate}, "system")
	if err != nil {
		t.Fatalf("update privileges: %v", err)
	}
	if len(narrowed.Privileges) != 2 || !narrowed.HasPrivilege(model.PrivBillCreate) || narrowed.HasPrivilege(model.PrivStockView) {
		t.Errorf("privileges = %v", narrowed.GetPrivilegeCodes())
	}

	inactive := false
	updated, err := svc.UpdateUser(ctx, user.ID, &UpdateUserRequest{
		Email: "clerk@example.com", FullName: "Senior Clerk", RoleID: admin.ID, IsActive: &inactive,
	}, "system")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FullName != "Senior Clerk" || updated.IsActive {
		t.Errorf("update = %+v", updated.ToResponse())
	}
	if _, err := af.auth.Login(ctx, "clerk@example.com", "clerk123"); !errors.Is(err, ErrUserInactive) {
		t.Errorf("inactive login: err = %v", err)
	}

	if err := svc.DeleteUser(ctx, user.ID, "system"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetUserByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("deleted user: err = %v", err)
	}
	var raw model.User
	if err := af.db.Unscoped().First(&raw, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("soft-deleted row missing: %v", err)
	}
	if raw.DeletedBy != "system" {
		t.Errorf("deleted_by = %q", raw.DeletedBy)
	}
}
