package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"codeberg.org/sajtmaskin/server/internal/auth"
)

// generates a JWT for local development and API testing
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET not set")
	}

	userID := os.Getenv("TEST_USER_ID")
	if userID == "" {
		userID = uuid.NewString()
	}

	email := os.Getenv("TEST_USER_EMAIL")
	if email == "" {
		email = "test@sajtmaskin.dev"
	}

	token, err := auth.GenerateJWT(userID, email)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}

	fmt.Printf("user_id: %s\n", userID)
	fmt.Printf("token:   %s\n", token)
}
