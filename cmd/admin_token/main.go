// Command admin_token prints a signed operator token for the admin API.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"kudi/internal/config"
	"kudi/internal/middleware"
	"kudi/internal/models"
)

func main() {
	config.LoadEnv()

	adminID := os.Getenv("ADMIN_ID")
	if adminID == "" {
		log.Fatal("ADMIN_ID must be set in environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ttl := config.GetDurationEnv("ADMIN_TOKEN_TTL", time.Hour)

	token, err := middleware.IssueToken(cfg.Auth.JWTSecret, adminID, models.RoleAdmin, ttl)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
