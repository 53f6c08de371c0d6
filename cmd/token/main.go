// Package main issues operator tokens for the reconciliation API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/settlement-recon/backend/config"
	"github.com/settlement-recon/backend/internal/application/adapter"
	"github.com/settlement-recon/backend/internal/integration/adapters"
)

func main() {
	operator := flag.String("operator", "", "Operator identity recorded on confirmations and resolutions (required)")
	role := flag.String("role", adapter.RoleOperator, "Role: viewer or operator")
	ttl := flag.Duration("ttl", 12*time.Hour, "Token lifetime")
	flag.Parse()

	if *operator == "" {
		fmt.Fprintln(os.Stderr, "Error: -operator is required")
		flag.Usage()
		os.Exit(2)
	}
	if *role != adapter.RoleViewer && *role != adapter.RoleOperator {
		fmt.Fprintf(os.Stderr, "Error: unknown role %q\n", *role)
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	token, err := adapters.NewTokenService(cfg.JWT.Secret).IssueToken(*operator, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
