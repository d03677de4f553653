// Command token mints a session token for desk staff or a visitor, for
// deployments where no identity provider issues them yet.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"eventdesk/internal/auth"
	"eventdesk/internal/config"
)

func main() {
	subject := flag.String("subject", "", "actor id carried in the token (required)")
	role := flag.String("role", "user", "actor role: user or admin")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to ACCESS_TTL")
	asJSON := flag.Bool("json", false, "print the token and expiry as JSON")
	flag.Parse()

	if err := run(*subject, *role, *ttl, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func run(subject, roleName string, ttl time.Duration, asJSON bool) error {
	if subject == "" {
		flag.Usage()
		return fmt.Errorf("-subject is required")
	}
	role, err := auth.ParseRole(roleName)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = cfg.AccessTTL
	}

	tok, err := auth.Issue(subject, role, cfg.JWTIssuer, cfg.JWTSigningKey, ttl)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"access_token": tok.Value,
			"expires_at":   tok.ExpiresAt.Unix(),
			"role":         role,
		})
	}
	fmt.Println(tok.Value)
	return nil
}
