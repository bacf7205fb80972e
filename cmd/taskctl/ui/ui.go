package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/go-task-api/internal/config"
)

// Credentials are collected by PromptCredentials.
type Credentials struct {
	Email    string
	Password string
}

// PromptCredentials asks for an email and a password, echoing neither the
// password nor its confirmation. Fields already set in c are not asked for.
func PromptCredentials(c *Credentials) error {
	var confirm string
	var fields []huh.Field

	if c.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(&c.Email).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("email is required")
				}
				return nil
			}))
	}

	if c.Password == "" {
		fields = append(fields,
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&c.Password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != c.Password {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		)
	}

	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin()).Run()
}

// PrintConfig prints the effective configuration. Secrets are reported by
// length only.
func PrintConfig(cfg *config.Config) {
	fmt.Println(titleStyle.Render("Configuration"))
	row("Env", cfg.Server.Env)
	row("Port", cfg.Server.Port)
	row("Database", cfg.Database.Driver)
	row("Redis", fmt.Sprintf("%t", cfg.Redis.Enabled))
	row("Token format", cfg.Auth.TokenFormat)
	row("Token secret", fmt.Sprintf("%d bytes", len(cfg.Auth.TokenSecret)))
	row("Issuer", cfg.Auth.Issuer)
	row("Audience", cfg.Auth.Audience)
	row("Token TTL", cfg.Auth.AccessTokenDuration.String())
	row("Rate limits", fmt.Sprintf("%t", cfg.RateLimit.Enabled))
	fmt.Println()
}

func row(label, value string) {
	fmt.Printf("  %s%s\n", labelStyle.Render(label), value)
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}
