// Command tokengen issues a signed API token for operators and services.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/example/ec-inventory/internal/auth"
	"github.com/example/ec-inventory/internal/config"
)

func main() {
	subject := flag.String("sub", "", "token subject")
	role := flag.String("role", auth.RoleViewer, "role: admin, service or viewer")
	flag.Parse()

	cfg := config.Load()
	if len(cfg.JWT.Secret) < 32 {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be at least 32 characters long")
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)
	token, expiresAt, err := jwtService.IssueToken(*subject, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
}
