package app

import (
	"fmt"

	authRepository "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/repository"
	authService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/service"
	authUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/session"
)

// SessionStore returns the session store.
func (c *Container) SessionStore() (*session.Store, error) {
	var err error
	c.sessionStoreInit.Do(func() {
		c.sessionStore, err = c.initSessionStore()
		if err != nil {
			c.initErrors["sessionStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionStore"]; exists {
		return nil, storedErr
	}
	return c.sessionStore, nil
}

// AuthUseCase returns the authentication use case.
func (c *Container) AuthUseCase() (authUseCase.UseCase, error) {
	var err error
	c.authUCInit.Do(func() {
		c.authUC, err = c.initAuthUseCase()
		if err != nil {
			c.initErrors["authUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authUseCase"]; exists {
		return nil, storedErr
	}
	return c.authUC, nil
}

// initSessionStore creates the session store over the key-value backend.
func (c *Container) initSessionStore() (*session.Store, error) {
	store, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for session store: %w", err)
	}

	return session.NewStore(store, c.config.SessionTTL), nil
}

// initAuthUseCase creates the authentication use case with all its dependencies.
func (c *Container) initAuthUseCase() (authUseCase.UseCase, error) {
	store, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for auth use case: %w", err)
	}

	sessions, err := c.SessionStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get session store for auth use case: %w", err)
	}

	auditor, err := c.AuditLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logger for auth use case: %w", err)
	}

	userRepo := authRepository.NewKVUserRepository(store)
	mfaRepo := authRepository.NewKVMFARepository(store, c.config.MFACodeTTL)
	limiter := authService.NewLoginLimiter(store, c.config.LoginMaxAttempts, c.config.LoginAttemptWindow)

	// TODO: replace the log-based delivery with an SMS/email sender once a
	// provider is selected.
	delivery := authUseCase.NewLogCodeDelivery(c.Logger())

	return authUseCase.NewAuthUseCase(
		userRepo,
		mfaRepo,
		sessions,
		authService.NewPasswordService(),
		authService.NewMFAService(),
		limiter,
		delivery,
		auditor,
	), nil
}
