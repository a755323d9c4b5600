package commands

import (
	"context"
	"fmt"
	"log/slog"

	authUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/usecase"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/app"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
)

// RunCreateUser creates a user account through the registration flow, so CLI
// accounts get the same validation and password hashing as any other path.
func RunCreateUser(ctx context.Context, username, password, name, email, role string, mfaEnabled bool) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	authUC, err := container.AuthUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize auth use case: %w", err)
	}

	user, err := authUC.RegisterUser(ctx, authUseCase.RegisterUserInput{
		Username:   username,
		Password:   password,
		Name:       name,
		Email:      email,
		Role:       role,
		MFAEnabled: mfaEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("user created",
		slog.String("id", user.ID.String()),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
		slog.Bool("mfa_enabled", user.MFAEnabled),
	)

	fmt.Printf("Created user %s (%s) with role %s\n", user.Username, user.ID, user.Role)
	return nil
}
