package main

import (
	"fmt"
	"io"
	"time"

	"github.com/satriahrh/soundalike/internal/auth"
	"github.com/satriahrh/soundalike/internal/config"
)

func runToken(envFile, subject, role string, out io.Writer) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if !cfg.AuthEnabled() {
		return fmt.Errorf("JWT_SECRET is not set")
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	token, expiresAt, err := issuer.GenerateToken(subject, role)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "# expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
