package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/smarttransit/bus-booking-backend/internal/utils"
)

func main() {
	size := flag.Int("bytes", 32, "random bytes in the secret (hex output is twice as long)")
	flag.Parse()

	if *size < 16 {
		log.Fatalf("-bytes must be at least 16, got %d", *size)
	}

	fmt.Println("===========================================")
	fmt.Println("JWT Secret Generator")
	fmt.Println("===========================================")
	fmt.Println()

	secret, err := utils.GenerateSecret(*size)
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	fmt.Println("Add this to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secret)
	fmt.Println()
	fmt.Println("Keep it out of version control. Rotating it signs every user out.")
	fmt.Println("===========================================")
}
