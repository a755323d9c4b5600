package commands

import (
	"context"
	"fmt"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/app"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
)

// RunGenerateKey creates and persists the storage encryption key if none
// exists yet. Idempotent: an existing key is left untouched.
func RunGenerateKey(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	keyManager, err := container.KeyManager()
	if err != nil {
		return fmt.Errorf("failed to initialize key manager: %w", err)
	}

	if _, err := keyManager.GetOrCreateKey(ctx); err != nil {
		return fmt.Errorf("failed to create storage key: %w", err)
	}

	wrapped := "unwrapped"
	if cfg.KMSKeyURI != "" {
		wrapped = "KMS-wrapped"
	}
	fmt.Printf("Storage key ready (%s, epoch %s)\n", wrapped, cryptoDomain.ActiveKeyEpoch)
	return nil
}
