// Package main provides a tool to seed the database with a first admin
// account and a small sample catalog.
//
// Usage:
//
//	DATA_PATH=~/circulate/data go run ./cmd/seed
//	DATA_PATH=~/circulate/data go run ./cmd/seed --with-catalog
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/circulateapp/circulate-server/internal/auth"
	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/id"
	"github.com/circulateapp/circulate-server/internal/store"
)

var (
	adminEmail    = flag.String("admin-email", "admin@circulate.local", "Email for the seeded admin account")
	adminPassword = flag.String("admin-password", "changeme", "Initial password for the seeded admin account")
	withCatalog   = flag.Bool("with-catalog", false, "Also seed a small sample catalog")
)

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataPath, "circulate.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	seedAdmin(ctx, s)

	if *withCatalog {
		seedCatalog(ctx, s)
	}
}

func seedAdmin(ctx context.Context, s *store.Store) {
	if existing, err := s.GetUserByEmail(ctx, *adminEmail); err == nil {
		fmt.Printf("Admin account already exists: %s (%s)\n", existing.Email, existing.ID)
		return
	}

	hash, err := auth.HashPassword(*adminPassword)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now()
	admin := &domain.User{
		Record: domain.Record{
			ID:        id.MustGenerate("usr"),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:              *adminEmail,
		PasswordHash:       hash,
		Role:               domain.RoleAdmin,
		DisplayName:        "Administrator",
		Barcode:            "ADMIN0001",
		ValidityDate:       now.AddDate(10, 0, 0),
		MustChangePassword: true,
	}

	if err := s.CreateUser(ctx, admin); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	fmt.Printf("Created admin account %s (password must be changed on first login)\n", admin.Email)
}

func seedCatalog(ctx context.Context, s *store.Store) {
	books := []*domain.Book{
		{
			Title:          "The Pragmatic Programmer",
			Author:         "David Thomas",
			ISBN:           "9780135957059",
			Publisher:      "Addison-Wesley",
			Subject:        "Software Engineering",
			CallNumber:     "005.1 THO",
			NumberOfCopies: 3,
		},
		{
			Title:          "Structure and Interpretation of Computer Programs",
			Author:         "Harold Abelson",
			ISBN:           "9780262510875",
			Publisher:      "MIT Press",
			Subject:        "Computer Science",
			CallNumber:     "005.13 ABE",
			NumberOfCopies: 2,
		},
		{
			Title:          "The Design of Everyday Things",
			Author:         "Don Norman",
			ISBN:           "9780465050659",
			Publisher:      "Basic Books",
			Subject:        "Design",
			CallNumber:     "745.2 NOR",
			NumberOfCopies: 1,
		},
	}

	now := time.Now()
	for _, book := range books {
		book.Record = domain.Record{
			ID:        id.MustGenerate("bok"),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateBook(ctx, book); err != nil {
			log.Printf("Failed to seed %q: %v", book.Title, err)
			continue
		}
		fmt.Printf("Seeded book: %s (%d copies)\n", book.Title, book.NumberOfCopies)
	}
}
