package domain

import "time"

// CirculationRecord is one loan transaction, from issue through return.
// Records are never deleted; a returned record is the historical ledger entry.
type CirculationRecord struct {
	Record
	UserID       string     `json:"user_id"`
	BookID       string     `json:"book_id"`
	IssueDate    time.Time  `json:"issue_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	RenewalCount int        `json:"renewal_count"`
	FineAmount   int64      `json:"fine_amount"` // Accrued; frozen once returned
	IssuedBy     string     `json:"issued_by"`   // Acting librarian/admin user ID
}

// IsActive reports whether the loan is still out.
func (c *CirculationRecord) IsActive() bool {
	return c.ReturnDate == nil
}

// IsOverdue reports whether the loan is active and past its due date.
func (c *CirculationRecord) IsOverdue(now time.Time) bool {
	return c.IsActive() && DateOnly(now).After(DateOnly(c.DueDate))
}
