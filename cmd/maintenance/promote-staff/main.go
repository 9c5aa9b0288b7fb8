package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// Staff accounts cannot be created over the API; an operator promotes a
// registered user with this tool.
func main() {
	var dbURLFlag, email string
	var demote bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&email, "email", "", "email of the registered user")
	flag.BoolVar(&demote, "demote", false, "turn a staff member back into a regular user")
	flag.Parse()

	if email == "" {
		log.Fatal("-email is required")
	}

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	role := models.RoleStaff
	if demote {
		role = models.RoleUser
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := database.NewUserRepository(db).SetRole(ctx, email, role)
	if errors.Is(err, database.ErrNotFound) {
		log.Fatalf("no user registered with email %s", email)
	}
	if err != nil {
		log.Fatalf("failed to update role: %v", err)
	}

	fmt.Printf("User %d (%s) now has role %q. Existing tokens keep the old role until they expire.\n", user.ID, user.Email, user.Role)
}
