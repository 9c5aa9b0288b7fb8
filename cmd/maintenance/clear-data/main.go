package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/database"
)

func main() {
	var dbURLFlag string
	var all bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&all, "all", false, "also remove schedules, buses, routes and users")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tables := []string{"audit_logs", "bookings"}
	if all {
		tables = append(tables, "schedules", "buses", "routes", "users")
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Fatalf("failed to begin transaction: %v", err)
	}

	fmt.Println("Connected to database. Truncating tables...")
	if all {
		_, err = tx.Exec(`TRUNCATE TABLE audit_logs, bookings, schedules, buses, routes, users RESTART IDENTITY CASCADE`)
	} else {
		_, err = tx.Exec(`TRUNCATE TABLE audit_logs, bookings RESTART IDENTITY CASCADE`)
	}
	if err != nil {
		tx.Rollback()
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// With bookings gone every seat ledger starts over; staff reservations go too.
	if !all {
		res, err := tx.Exec(`
UPDATE schedules
SET booked_seats = '{}', reserved_seats = '{}', available_seats = total_seats, updated_at = NOW()`)
		if err != nil {
			tx.Rollback()
			log.Fatalf("failed to reset seat ledgers: %v", err)
		}
		n, _ := res.RowsAffected()
		fmt.Printf("Reset seat ledgers of %d schedules.\n", n)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("failed to commit: %v", err)
	}

	fmt.Println("Data cleared successfully.")

	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
