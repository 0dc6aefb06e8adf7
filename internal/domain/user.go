package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleStudent is a standard borrower account.
	RoleStudent Role = "student"
	// RoleStaff is a faculty/staff borrower with a higher borrowing cap.
	RoleStaff Role = "staff"
	// RoleLibrarian can operate the circulation desk.
	RoleLibrarian Role = "librarian"
	// RoleAdmin grants full administrative access.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// User represents a library member or staff account.
type User struct {
	Record
	Email              string    `json:"email"`
	PasswordHash       string    `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	Role               Role      `json:"role"`
	DisplayName        string    `json:"display_name"`
	Barcode            string    `json:"barcode"` // ID-card barcode scanned at the gate
	ValidityDate       time.Time `json:"validity_date"`
	OutstandingFine    int64     `json:"outstanding_fine"` // Smallest currency unit
	MustChangePassword bool      `json:"must_change_password"`
}

// IsExpired reports whether the account's validity date has passed.
func (u *User) IsExpired(now time.Time) bool {
	return DateOnly(now).After(DateOnly(u.ValidityDate))
}

// IsPrivileged reports whether the user may operate the circulation desk,
// which includes overriding reservation conflicts and setting explicit due dates.
func (u *User) IsPrivileged() bool {
	return u.Role == RoleLibrarian || u.Role == RoleAdmin
}

// IsAdmin reports whether the user has full administrative access.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BorrowLimit returns the user's concurrent loan cap under the given settings.
// Librarians and admins borrow under the staff cap.
func (u *User) BorrowLimit(s *LibrarySettings) int {
	if u.Role == RoleStudent {
		return s.MaxBooksPerStudent
	}
	return s.MaxBooksPerStaff
}
