package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/repository"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/service"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/session"
)

// recordingAuditor captures logged events for assertions.
type recordingAuditor struct {
	mu     sync.Mutex
	events []*auditDomain.Event
}

func (r *recordingAuditor) LogEvent(_ context.Context, event *auditDomain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAuditor) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.events))
	for _, e := range r.events {
		actions = append(actions, e.Action)
	}
	return actions
}

// capturingDelivery records the last code handed off out of band.
type capturingDelivery struct {
	lastCode string
}

func (c *capturingDelivery) Deliver(_ context.Context, _ *domain.User, code string) error {
	c.lastCode = code
	return nil
}

type authFixture struct {
	uc       *AuthUseCase
	delivery *capturingDelivery
	auditor  *recordingAuditor
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store := kvstore.NewMemoryStore()
	delivery := &capturingDelivery{}
	auditor := &recordingAuditor{}

	uc := NewAuthUseCase(
		repository.NewKVUserRepository(store),
		repository.NewKVMFARepository(store, 5*time.Minute),
		session.NewStore(store, time.Hour),
		service.NewPasswordService(),
		service.NewMFAService(),
		service.NewLoginLimiter(store, 5, 15*time.Minute),
		delivery,
		auditor,
	)
	return &authFixture{uc: uc, delivery: delivery, auditor: auditor}
}

func (f *authFixture) registerUser(t *testing.T, username string, mfaEnabled bool) *domain.User {
	t.Helper()

	user, err := f.uc.RegisterUser(context.Background(), RegisterUserInput{
		Username:   username,
		Name:       "Ahmed Al-Zahrani",
		Email:      username + "@example.com",
		Password:   "Str0ng!Passw0rd",
		Role:       string(domain.RoleDoctor),
		MFAEnabled: mfaEnabled,
	})
	require.NoError(t, err)
	return user
}

// TestAuthUseCase_Login tests the primary credential check.
func TestAuthUseCase_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_WithoutMFAIssuesSession", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", false)

		out, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "Str0ng!Passw0rd", DeviceID: "device-1"})
		require.NoError(t, err)
		assert.False(t, out.RequiresMFA)
		require.NotNil(t, out.Session)
		assert.Len(t, out.Session.Token, 64)
		assert.Empty(t, out.Session.User.PasswordHash)
		assert.Contains(t, f.auditor.actions(), auditDomain.ActionLoginSuccess)
	})

	t.Run("Success_MFAStepUpWithholdsSession", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", true)

		out, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "Str0ng!Passw0rd", DeviceID: "device-1"})
		require.NoError(t, err)
		assert.True(t, out.RequiresMFA)
		assert.Nil(t, out.Session)
		assert.NotEmpty(t, f.delivery.lastCode)
	})

	t.Run("Success_UsernameIsCaseInsensitive", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", false)

		out, err := f.uc.Login(ctx, LoginInput{Username: "  DR.Ahmed ", Password: "Str0ng!Passw0rd", DeviceID: "device-1"})
		require.NoError(t, err)
		require.NotNil(t, out.Session)
	})

	t.Run("Error_WrongPassword", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", false)

		_, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "wrong-password", DeviceID: "device-1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		assert.Contains(t, f.auditor.actions(), auditDomain.ActionLoginFailed)
	})

	t.Run("Error_UnknownUserIndistinguishable", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", false)

		wrongPassword := func() error {
			_, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "wrong-password", DeviceID: "device-1"})
			return err
		}
		unknownUser := func() error {
			_, err := f.uc.Login(ctx, LoginInput{Username: "nobody", Password: "wrong-password", DeviceID: "device-1"})
			return err
		}

		// Both failure modes collapse into the same error.
		assert.Equal(t, wrongPassword().Error(), unknownUser().Error())
		assert.ErrorIs(t, unknownUser(), domain.ErrInvalidCredentials)
	})

	t.Run("Error_RateLimitedAfterFiveFailures", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", false)

		for i := 0; i < 5; i++ {
			_, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "wrong-password", DeviceID: "device-1"})
			require.ErrorIs(t, err, domain.ErrInvalidCredentials)
		}

		// The sixth attempt is rejected before the password is checked,
		// even with correct credentials.
		_, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "Str0ng!Passw0rd", DeviceID: "device-1"})
		assert.ErrorIs(t, err, domain.ErrLoginRateLimited)
		assert.ErrorIs(t, err, apperrors.ErrRateLimited)
		assert.Contains(t, f.auditor.actions(), auditDomain.ActionLoginRateLimited)
	})

	t.Run("Error_InactiveUser", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		users := repository.NewKVUserRepository(store)
		f := &authFixture{delivery: &capturingDelivery{}, auditor: &recordingAuditor{}}
		f.uc = NewAuthUseCase(
			users,
			repository.NewKVMFARepository(store, 5*time.Minute),
			session.NewStore(store, time.Hour),
			service.NewPasswordService(),
			service.NewMFAService(),
			service.NewLoginLimiter(store, 5, 15*time.Minute),
			f.delivery,
			f.auditor,
		)
		user := f.registerUser(t, "dr.ahmed", false)

		user.IsActive = false
		require.NoError(t, users.Update(ctx, user))

		_, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "Str0ng!Passw0rd", DeviceID: "device-1"})
		assert.ErrorIs(t, err, domain.ErrUserInactive)
	})

	t.Run("Error_MissingDeviceID", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "Str0ng!Passw0rd"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

// TestAuthUseCase_VerifyMFA tests the step-up completion.
func TestAuthUseCase_VerifyMFA(t *testing.T) {
	ctx := context.Background()

	beginStepUp := func(t *testing.T) (*authFixture, string) {
		t.Helper()
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", true)

		out, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "Str0ng!Passw0rd", DeviceID: "device-1"})
		require.NoError(t, err)
		require.True(t, out.RequiresMFA)
		require.NotEmpty(t, f.delivery.lastCode)
		return f, f.delivery.lastCode
	}

	t.Run("Success_CorrectCodeIssuesSession", func(t *testing.T) {
		f, code := beginStepUp(t)

		out, err := f.uc.VerifyMFA(ctx, VerifyMFAInput{Username: "dr.ahmed", Code: code, DeviceID: "device-1"})
		require.NoError(t, err)
		require.NotNil(t, out.Session)
		assert.Contains(t, f.auditor.actions(), auditDomain.ActionMFAVerified)
	})

	t.Run("Error_CodeIsSingleUse", func(t *testing.T) {
		f, code := beginStepUp(t)

		_, err := f.uc.VerifyMFA(ctx, VerifyMFAInput{Username: "dr.ahmed", Code: code, DeviceID: "device-1"})
		require.NoError(t, err)

		_, err = f.uc.VerifyMFA(ctx, VerifyMFAInput{Username: "dr.ahmed", Code: code, DeviceID: "device-1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("Error_WrongCodeCountsAsFailure", func(t *testing.T) {
		f, code := beginStepUp(t)

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		_, err := f.uc.VerifyMFA(ctx, VerifyMFAInput{Username: "dr.ahmed", Code: wrong, DeviceID: "device-1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		assert.Contains(t, f.auditor.actions(), auditDomain.ActionMFAFailed)

		// The pending record survives a mismatch; the right code still works.
		out, err := f.uc.VerifyMFA(ctx, VerifyMFAInput{Username: "dr.ahmed", Code: code, DeviceID: "device-1"})
		require.NoError(t, err)
		require.NotNil(t, out.Session)
	})

	t.Run("Error_NoPendingStepUp", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", true)

		_, err := f.uc.VerifyMFA(ctx, VerifyMFAInput{Username: "dr.ahmed", Code: "123456", DeviceID: "device-1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

// TestAuthUseCase_ValidateAndLogout tests session revalidation and teardown.
func TestAuthUseCase_ValidateAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.registerUser(t, "dr.ahmed", false)

	out, err := f.uc.Login(ctx, LoginInput{Username: "dr.ahmed", Password: "Str0ng!Passw0rd", DeviceID: "device-1"})
	require.NoError(t, err)
	token := out.Session.Token

	sess, err := f.uc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "dr.ahmed", sess.User.Username)

	require.NoError(t, f.uc.Logout(ctx, token))
	assert.Contains(t, f.auditor.actions(), auditDomain.ActionLogout)

	_, err = f.uc.Validate(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)

	// Logging out again is best-effort and does not error.
	assert.NoError(t, f.uc.Logout(ctx, token))
}

// TestAuthUseCase_RegisterUser tests account creation rules.
func TestAuthUseCase_RegisterUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_HashesPassword", func(t *testing.T) {
		f := newAuthFixture(t)

		user := f.registerUser(t, "dr.ahmed", true)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotContains(t, user.PasswordHash, "Str0ng!Passw0rd")
		assert.True(t, user.IsActive)
	})

	t.Run("Error_DuplicateUsername", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerUser(t, "dr.ahmed", false)

		_, err := f.uc.RegisterUser(ctx, RegisterUserInput{
			Username:   "dr.ahmed",
			Name:       "Someone Else",
			Email:      "else@example.com",
			Password:   "Str0ng!Passw0rd",
			Role:       string(domain.RoleNurse),
			MFAEnabled: false,
		})
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("Error_WeakPassword", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.uc.RegisterUser(ctx, RegisterUserInput{
			Username: "dr.ahmed",
			Name:     "Ahmed",
			Email:    "ahmed@example.com",
			Password: "alllowercase",
			Role:     string(domain.RoleDoctor),
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_UnknownRole", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.uc.RegisterUser(ctx, RegisterUserInput{
			Username: "dr.ahmed",
			Name:     "Ahmed",
			Email:    "ahmed@example.com",
			Password: "Str0ng!Passw0rd",
			Role:     "superuser",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
