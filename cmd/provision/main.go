// Command provision creates password-login identities (doctors and administrators)
// directly in the identity store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nabha-health/telehealth-auth/internal/auth"
	"github.com/nabha-health/telehealth-auth/internal/config"
	"github.com/nabha-health/telehealth-auth/internal/domain"
	"github.com/nabha-health/telehealth-auth/internal/observability"
	"github.com/nabha-health/telehealth-auth/internal/repository"
	"github.com/nabha-health/telehealth-auth/internal/service"
)

func main() {
	var in service.ProvisionInput
	var role, defaults string

	flag.StringVar(&in.Email, "email", "", "login email (required)")
	flag.StringVar(&role, "role", string(domain.RoleDoctor), "role: DOCTOR or ADMIN")
	flag.StringVar(&in.DisplayName, "name", "", "display name")
	flag.StringVar(&in.Contact, "contact", "", "optional phone number")
	flag.StringVar(&defaults, "profile", "", "profile defaults as JSON, e.g. '{\"specialization\":\"Pediatrics\"}'")
	flag.Parse()

	// Passwords come from the environment so they stay out of shell history.
	in.Password = os.Getenv("PROVISION_PASSWORD")
	in.Role = domain.Role(strings.ToUpper(role))

	if err := run(in, defaults); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(in service.ProvisionInput, rawDefaults string) error {
	if in.Email == "" {
		return errors.New("-email is required")
	}
	if in.Password == "" {
		return errors.New("PROVISION_PASSWORD must be set")
	}
	if !in.Role.Valid() {
		return domain.ErrInvalidRole
	}
	defaults, err := domain.DecodeProfileDefaults(in.Role, []byte(rawDefaults))
	if err != nil {
		return err
	}
	in.Defaults = defaults

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identities, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	resolver := service.NewIdentityResolver(identities, auth.NewPasswordVerifier(cfg.Auth.BcryptCost), cfg.Auth.StoreTimeout)
	identity, err := resolver.Provision(ctx, in)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"id":    identity.ID,
		"role":  identity.Role,
		"email": identity.Email,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
