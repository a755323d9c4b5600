// Package usecase implements the authentication business logic: credential
// verification, the MFA step-up, session issuance and revalidation, and the
// failed-attempt rate limit.
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/service"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/session"
	appValidation "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/validation"
)

// LoginInput contains the input data for the primary credential check.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

// VerifyMFAInput contains the input data for the MFA step-up.
type VerifyMFAInput struct {
	Username string `json:"username"`
	Code     string `json:"code"`
	DeviceID string `json:"device_id"`
}

// RegisterUserInput contains the input data for account creation.
type RegisterUserInput struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

// LoginOutput is the result of a successful login step. When RequiresMFA is
// set, no session exists yet and the caller must complete the step-up.
type LoginOutput struct {
	RequiresMFA bool
	Session     *session.Session
}

// UseCase defines the interface for authentication business logic operations.
type UseCase interface {
	Login(ctx context.Context, input LoginInput) (*LoginOutput, error)
	VerifyMFA(ctx context.Context, input VerifyMFAInput) (*LoginOutput, error)
	Validate(ctx context.Context, token string) (*session.Session, error)
	Logout(ctx context.Context, token string) error
	RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, error)
}

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// MFARepository defines pending MFA step-up persistence operations.
type MFARepository interface {
	Create(ctx context.Context, pending *domain.PendingMFA) error
	Get(ctx context.Context, username string) (*domain.PendingMFA, error)
	Delete(ctx context.Context, username string) error
}

// AuditLogger records authentication events. LogEvent never fails the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, event *auditDomain.Event)
}

// CodeDelivery hands a generated one-time code to the user out of band.
type CodeDelivery interface {
	Deliver(ctx context.Context, user *domain.User, code string) error
}

// AuthUseCase handles authentication-related business logic.
type AuthUseCase struct {
	userRepo  UserRepository
	mfaRepo   MFARepository
	sessions  *session.Store
	passwords service.PasswordService
	mfaCodes  service.MFAService
	limiter   service.LoginLimiter
	delivery  CodeDelivery
	auditor   AuditLogger
	uuidOf    func(u *domain.User) string
}

// NewAuthUseCase creates a new AuthUseCase.
func NewAuthUseCase(
	userRepo UserRepository,
	mfaRepo MFARepository,
	sessions *session.Store,
	passwords service.PasswordService,
	mfaCodes service.MFAService,
	limiter service.LoginLimiter,
	delivery CodeDelivery,
	auditor AuditLogger,
) *AuthUseCase {
	return &AuthUseCase{
		userRepo:  userRepo,
		mfaRepo:   mfaRepo,
		sessions:  sessions,
		passwords: passwords,
		mfaCodes:  mfaCodes,
		limiter:   limiter,
		delivery:  delivery,
		auditor:   auditor,
	}
}

// Login verifies primary credentials. For MFA-enabled accounts it stores a
// pending step-up server-side and returns RequiresMFA without a token;
// otherwise it issues a session. Credential failures are indistinguishable
// from unknown usernames in the returned error.
func (uc *AuthUseCase) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if err := uc.validateLoginInput(input); err != nil {
		return nil, err
	}
	username := strings.ToLower(strings.TrimSpace(input.Username))

	if err := uc.checkRateLimit(ctx, username); err != nil {
		return nil, err
	}

	user, err := uc.verifyCredentials(ctx, username, input.Password)
	if err != nil {
		return nil, err
	}

	if user.MFAEnabled {
		if err := uc.beginMFA(ctx, user, input.DeviceID); err != nil {
			return nil, err
		}
		return &LoginOutput{RequiresMFA: true}, nil
	}

	return uc.issueSession(ctx, user, input.DeviceID, auditDomain.ActionLoginSuccess)
}

// VerifyMFA completes the step-up: it consumes the pending record created by
// Login and issues a session on a matching code. Failed codes count against
// the same rate-limit window as failed passwords.
func (uc *AuthUseCase) VerifyMFA(ctx context.Context, input VerifyMFAInput) (*LoginOutput, error) {
	if err := uc.validateVerifyMFAInput(input); err != nil {
		return nil, err
	}
	username := strings.ToLower(strings.TrimSpace(input.Username))

	if err := uc.checkRateLimit(ctx, username); err != nil {
		return nil, err
	}

	pending, err := uc.mfaRepo.Get(ctx, username)
	if err != nil {
		if apperrors.Is(err, domain.ErrInvalidCredentials) {
			uc.recordFailure(ctx, username, auditDomain.ActionMFAFailed, "no pending step-up")
		}
		return nil, err
	}

	if !uc.mfaCodes.VerifyCode(input.Code, pending.CodeHash) {
		uc.recordFailure(ctx, username, auditDomain.ActionMFAFailed, "code mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	// The code is single-use regardless of what happens next.
	if err := uc.mfaRepo.Delete(ctx, username); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	uc.audit(ctx, user, auditDomain.ActionMFAVerified, auditDomain.SeverityLow, auditDomain.OutcomeSuccess, nil)
	return uc.issueSession(ctx, user, input.DeviceID, auditDomain.ActionLoginSuccess)
}

// Validate checks the session behind token. Expired or unknown tokens yield
// ErrSessionExpired; an expired record is removed as part of the check.
func (uc *AuthUseCase) Validate(ctx context.Context, token string) (*session.Session, error) {
	return uc.sessions.Validate(ctx, token)
}

// Logout destroys the session behind token. Best effort: logging out an
// already-absent session succeeds.
func (uc *AuthUseCase) Logout(ctx context.Context, token string) error {
	sess, err := uc.sessions.Validate(ctx, token)
	if err == nil {
		uc.audit(ctx, &sess.User, auditDomain.ActionLogout, auditDomain.SeverityLow, auditDomain.OutcomeSuccess, nil)
	}
	return uc.sessions.Destroy(ctx, token)
}

// RegisterUser creates a new account. Exposed to the operator CLI, not over
// HTTP.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, error) {
	if err := uc.validateRegisterUserInput(input); err != nil {
		return nil, err
	}

	hash, err := uc.passwords.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           newUserID(),
		Username:     strings.ToLower(strings.TrimSpace(input.Username)),
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(strings.ToLower(input.Email)),
		Role:         domain.Role(input.Role),
		PasswordHash: hash,
		MFAEnabled:   input.MFAEnabled,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func newUserID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// checkRateLimit rejects the attempt when the username exhausted its
// failed-attempt budget, regardless of credential correctness.
func (uc *AuthUseCase) checkRateLimit(ctx context.Context, username string) error {
	allowed, retryAfter, err := uc.limiter.Allow(ctx, username)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	event := auditDomain.NewEvent(auditDomain.ActionLoginRateLimited, "auth", auditDomain.SeverityHigh, auditDomain.OutcomeFailure)
	event.Details = map[string]any{"retry_after_seconds": retryAfter}
	uc.auditor.LogEvent(ctx, event)

	return domain.ErrLoginRateLimited
}

// verifyCredentials resolves the user and checks the password. Unknown users
// and wrong passwords produce the same error and both count as failures.
func (uc *AuthUseCase) verifyCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.Is(err, domain.ErrUserNotFound) {
			uc.recordFailure(ctx, username, auditDomain.ActionLoginFailed, "unknown user")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !uc.passwords.ComparePassword(password, user.PasswordHash) {
		uc.recordFailure(ctx, username, auditDomain.ActionLoginFailed, "password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		uc.audit(ctx, user, auditDomain.ActionLoginFailed, auditDomain.SeverityHigh, auditDomain.OutcomeFailure,
			map[string]any{"reason": "inactive"})
		return nil, domain.ErrUserInactive
	}

	return user, nil
}

// beginMFA generates a one-time code, stores its hash with the pending login
// and hands the plain code to the delivery channel.
func (uc *AuthUseCase) beginMFA(ctx context.Context, user *domain.User, deviceID string) error {
	code, codeHash, err := uc.mfaCodes.GenerateCode()
	if err != nil {
		return err
	}

	pending := &domain.PendingMFA{
		Username:  user.Username,
		CodeHash:  codeHash,
		DeviceID:  deviceID,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.mfaRepo.Create(ctx, pending); err != nil {
		return err
	}

	if err := uc.delivery.Deliver(ctx, user, code); err != nil {
		return apperrors.Wrap(err, "failed to deliver mfa code")
	}
	return nil
}

// issueSession resets the rate-limit window, creates the session and emits
// the success audit event.
func (uc *AuthUseCase) issueSession(ctx context.Context, user *domain.User, deviceID, action string) (*LoginOutput, error) {
	if err := uc.limiter.Reset(ctx, user.Username); err != nil {
		return nil, err
	}

	sess, err := uc.sessions.Issue(ctx, *user, deviceID)
	if err != nil {
		return nil, err
	}

	uc.audit(ctx, user, action, auditDomain.SeverityLow, auditDomain.OutcomeSuccess,
		map[string]any{"device_id": deviceID})

	return &LoginOutput{Session: sess}, nil
}

// recordFailure counts the attempt against the window and audits it. The
// audited username is the attempted principal, known or not.
func (uc *AuthUseCase) recordFailure(ctx context.Context, username, action, reason string) {
	_ = uc.limiter.RecordFailure(ctx, username)

	event := auditDomain.NewEvent(action, "auth", auditDomain.SeverityHigh, auditDomain.OutcomeFailure)
	event.Details = map[string]any{"username": username, "reason": reason}
	uc.auditor.LogEvent(ctx, event)
}

func (uc *AuthUseCase) audit(
	ctx context.Context,
	user *domain.User,
	action string,
	severity auditDomain.Severity,
	outcome auditDomain.Outcome,
	details map[string]any,
) {
	event := auditDomain.NewEvent(action, "auth", severity, outcome)
	event.UserID = user.ID.String()
	event.UserRole = string(user.Role)
	event.Details = details
	uc.auditor.LogEvent(ctx, event)
}

func (uc *AuthUseCase) validateLoginInput(input LoginInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.NotBlank,
			validation.Length(3, 64).Error("username must be between 3 and 64 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(1, 128).Error("password must be between 1 and 128 characters"),
		),
		validation.Field(&input.DeviceID,
			validation.Required.Error("device_id is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("device_id must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

func (uc *AuthUseCase) validateVerifyMFAInput(input VerifyMFAInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.NotBlank,
			validation.Length(3, 64).Error("username must be between 3 and 64 characters"),
		),
		validation.Field(&input.Code,
			validation.Required.Error("code is required"),
			validation.Length(6, 6).Error("code must be 6 digits"),
		),
		validation.Field(&input.DeviceID,
			validation.Required.Error("device_id is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("device_id must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

func (uc *AuthUseCase) validateRegisterUserInput(input RegisterUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.Username,
		),
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{
				MinLength:      8,
				RequireUpper:   true,
				RequireLower:   true,
				RequireNumber:  true,
				RequireSpecial: true,
			},
		),
		validation.Field(&input.Role,
			validation.Required.Error("role is required"),
			validation.In(
				string(domain.RoleAdmin),
				string(domain.RoleDoctor),
				string(domain.RoleNurse),
				string(domain.RoleStaff),
			).Error("role must be one of admin, doctor, nurse, staff"),
		),
	)
	return appValidation.WrapValidationError(err)
}
