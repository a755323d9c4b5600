// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/cmd/app/commands"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "doctorhub",
		Usage:   "Doctor hub security and compliance core",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations for the SQL key-value backend",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-user",
				Usage: "Create a user account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Required: true,
						Usage:    "Login username",
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "Initial password",
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Display name",
					},
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Required: true,
						Usage:    "Contact email",
					},
					&cli.StringFlag{
						Name:    "role",
						Aliases: []string{"r"},
						Value:   "doctor",
						Usage:   "Account role (admin, doctor, nurse, staff)",
					},
					&cli.BoolFlag{
						Name:  "mfa",
						Value: true,
						Usage: "Require the MFA step-up at login",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateUser(
						ctx,
						cmd.String("username"),
						cmd.String("password"),
						cmd.String("name"),
						cmd.String("email"),
						cmd.String("role"),
						cmd.Bool("mfa"),
					)
				},
			},
			{
				Name:  "generate-key",
				Usage: "Create the storage encryption key if none exists",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGenerateKey(ctx)
				},
			},
			{
				Name:  "clean-audit-events",
				Usage: "Delete audit events older than the retention window",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "days",
						Aliases: []string{"d"},
						Value:   0,
						Usage:   "Override the configured retention in days (0 uses config)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanAuditEvents(ctx, cmd.Int("days"))
				},
			},
			{
				Name:  "clean-expired-data",
				Usage: "Run the sensitive-storage retention sweep once",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanExpiredData(ctx)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
