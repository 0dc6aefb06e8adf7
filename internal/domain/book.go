package domain

// Book is a catalog entry. Bibliographic fields are immutable after creation;
// copy counts change on loss/acquisition.
type Book struct {
	Record
	Title          string `json:"title"`
	Author         string `json:"author"`
	ISBN           string `json:"isbn,omitempty"`
	Publisher      string `json:"publisher,omitempty"`
	Subject        string `json:"subject,omitempty"`
	CallNumber     string `json:"call_number,omitempty"`
	NumberOfCopies int    `json:"number_of_copies"`

	// AvailableCopies is derived: NumberOfCopies minus active loans.
	// Populated by store queries, never written directly.
	AvailableCopies int `json:"available_copies"`
}
