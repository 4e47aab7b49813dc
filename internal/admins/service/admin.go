package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	adminserrors "parkly/internal/admins/errors"
	"parkly/internal/admins/repository"
	"parkly/internal/admins/validator"
	parkingvalidator "parkly/internal/parking/validator"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/model"
	"parkly/pkg/sanitizer"
)

const invalidCredentials = "invalid credentials"

// dummyHash is compared against when the email is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("parkly-dummy-password"), bcrypt.DefaultCost)

type AdminService interface {
	Register(ctx context.Context, reg *model.AdminRegistration) (*model.Admin, error)
	Login(ctx context.Context, creds *model.AdminCredentials) (*model.AdminToken, error)
}

// TokenSealer is implemented by *sealer.Sealer.
type TokenSealer interface {
	Seal(subject string, expiresAt time.Time) (string, error)
}

type adminService struct {
	repo      repository.AdminRepository
	validator *validator.AdminValidator
	sealer    TokenSealer
	cfg       *config.Config
	now       func() time.Time
}

func NewAdminService(
	repo repository.AdminRepository,
	validator *validator.AdminValidator,
	sealer TokenSealer,
	cfg *config.Config,
) AdminService {
	return &adminService{
		repo:      repo,
		validator: validator,
		sealer:    sealer,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *adminService) Register(ctx context.Context, reg *model.AdminRegistration) (*model.Admin, error) {
	if !s.cfg.AdminSignupEnabled {
		return nil, apperrors.Forbidden("Admin signup is disabled")
	}

	if reg != nil {
		reg.Email = sanitizer.SanitizeEmail(reg.Email)
		reg.Name = sanitizer.SanitizeName(reg.Name)
	}
	if err := s.validator.ValidateRegistration(reg); err != nil {
		s.cfg.Log.Warn("Admin registration validation failed", "error", err)
		return nil, validationError("Admin registration validation failed", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		s.cfg.Log.Error("Failed to hash admin password", "error", err)
		return nil, apperrors.Internal("Failed to register admin", err)
	}

	admin := &model.Admin{
		Email:        reg.Email,
		Name:         reg.Name,
		PasswordHash: string(hash),
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		_, err := s.repo.FindByEmail(sessCtx, admin.Email)
		if err == nil {
			return apperrors.Conflict(fmt.Sprintf("Admin with email %s already exists", admin.Email))
		}
		if !errors.Is(err, adminserrors.ErrAdminNotFound) {
			return fmt.Errorf("failed to check for duplicates: %w", err)
		}
		return s.repo.Create(sessCtx, admin)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		if errors.Is(err, adminserrors.ErrAdminExists) {
			return nil, apperrors.Conflict(fmt.Sprintf("Admin with email %s already exists", admin.Email))
		}
		s.cfg.Log.Error("Failed to register admin", "email", admin.Email, "error", err)
		return nil, apperrors.Internal("Failed to register admin", err)
	}

	s.cfg.Log.Info("Admin registered successfully", "admin_id", admin.ID, "email", admin.Email)
	return admin, nil
}

func (s *adminService) Login(ctx context.Context, creds *model.AdminCredentials) (*model.AdminToken, error) {
	if creds != nil {
		creds.Email = sanitizer.SanitizeEmail(creds.Email)
	}
	if err := s.validator.ValidateCredentials(creds); err != nil {
		return nil, validationError("Admin credentials validation failed", err)
	}

	admin, err := s.repo.FindByEmail(ctx, creds.Email)
	if err != nil {
		if !errors.Is(err, adminserrors.ErrAdminNotFound) {
			s.cfg.Log.Error("Failed to look up admin", "email", creds.Email, "error", err)
			return nil, apperrors.Internal("Failed to authenticate admin", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(creds.Password))
		s.cfg.Log.Warn("Admin login failed", "email", creds.Email, "reason", "unknown email")
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(creds.Password)); err != nil {
		s.cfg.Log.Warn("Admin login failed", "email", creds.Email, "reason", "password mismatch")
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	expiresAt := s.now().Add(s.cfg.AdminTokenTTL).UTC().Truncate(time.Second)
	token, err := s.sealer.Seal(admin.Email, expiresAt)
	if err != nil {
		s.cfg.Log.Error("Failed to issue admin token", "email", admin.Email, "error", err)
		return nil, apperrors.Internal("Failed to authenticate admin", err)
	}

	s.cfg.Log.Info("Admin logged in", "email", admin.Email, "expires_at", expiresAt)
	return &model.AdminToken{
		Token:     token,
		Email:     admin.Email,
		ExpiresAt: expiresAt,
	}, nil
}

func validationError(message string, err error) error {
	var verrs parkingvalidator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Fields())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
