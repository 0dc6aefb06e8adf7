package domain

import (
	"testing"
	"time"
)

func TestUserIsExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	u := &User{ValidityDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}
	if u.IsExpired(now) {
		t.Error("account valid through today should not be expired")
	}

	u.ValidityDate = time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)
	if !u.IsExpired(now) {
		t.Error("validity date yesterday should be expired")
	}
}

func TestBorrowLimit(t *testing.T) {
	settings := DefaultLibrarySettings()

	tests := []struct {
		role Role
		want int
	}{
		{RoleStudent, 3},
		{RoleStaff, 5},
		{RoleLibrarian, 5},
		{RoleAdmin, 5},
	}
	for _, tt := range tests {
		u := &User{Role: tt.role}
		if got := u.BorrowLimit(settings); got != tt.want {
			t.Errorf("BorrowLimit(%s): got %d, want %d", tt.role, got, tt.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleStudent, RoleStaff, RoleLibrarian, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("superuser").Valid() {
		t.Error("unknown role should not be valid")
	}
}
