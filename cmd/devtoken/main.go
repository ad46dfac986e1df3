// Command devtoken prints a signed access token for local development.
//
//	JWT_SECRET=dev go run ./cmd/devtoken -tenant acme -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/config"
	"github.com/DebkantaDey/inventory-management-system/internal/middleware"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/golang-jwt/jwt/v5"
)

func main() {
	tenantFlag := flag.String("tenant", "", "tenant id to embed in the token")
	subject := flag.String("sub", "devtoken", "token subject")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	tenantID, err := tenant.Parse(*tenantFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken: -tenant is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "devtoken: JWT_SECRET must be set")
		os.Exit(1)
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		TenantID: tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(signed)
}
