// Package search provides full-text catalog search using Bleve.
// Patrons search the OPAC by title, author, ISBN or subject with fuzzy
// matching and subject faceting.
package search

import (
	"github.com/circulateapp/circulate-server/internal/domain"
)

// CatalogDocument is the document structure for the Bleve catalog index.
type CatalogDocument struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	ISBN       string `json:"isbn,omitempty"`
	Publisher  string `json:"publisher,omitempty"`
	Subject    string `json:"subject,omitempty"`
	CallNumber string `json:"call_number,omitempty"`

	// Timestamps for sorting, Unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *CatalogDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"author":     d.Author,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.Subject != "" {
		m["subject"] = d.Subject
	}
	if d.CallNumber != "" {
		m["call_number"] = d.CallNumber
	}

	return m
}

// BookToDocument converts a domain Book to a CatalogDocument.
func BookToDocument(book *domain.Book) *CatalogDocument {
	return &CatalogDocument{
		ID:         book.ID,
		Title:      book.Title,
		Author:     book.Author,
		ISBN:       book.ISBN,
		Publisher:  book.Publisher,
		Subject:    book.Subject,
		CallNumber: book.CallNumber,
		CreatedAt:  book.CreatedAt.UnixMilli(),
		UpdatedAt:  book.UpdatedAt.UnixMilli(),
	}
}
