package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mediassist/resource-api/internal/email"
	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	"github.com/mediassist/resource-api/pkg/auth"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/logger"
	"github.com/mediassist/resource-api/pkg/security"
)

const (
	maxLoginAttempts        = 5
	lockoutDuration         = 15 * time.Minute
	verificationTokenExpiry = 24 * time.Hour
)

// Service owns registration, login and token lifecycle. Registration is
// role-specific: doctors get a provider profile, hospital admins get a
// facility of their own.
type Service struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	providers  repository.ProviderRepository
	facilities repository.FacilityRepository
	jwt        auth.JWTService
	hasher     security.PasswordHasher
	email      email.Service
	logger     *logger.Logger
}

func NewService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	providers repository.ProviderRepository,
	facilities repository.FacilityRepository,
	jwt auth.JWTService,
	hasher security.PasswordHasher,
	email email.Service,
	logger *logger.Logger,
) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		providers:  providers,
		facilities: facilities,
		jwt:        jwt,
		hasher:     hasher,
		email:      email,
		logger:     logger,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	if !req.Role.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown role %q", req.Role), nil)
	}

	if existing, err := s.users.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email is already registered", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.NewValidation("invalid password", err)
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         req.Role,
		Status:       model.UserStatusActive,
	}

	switch req.Role {
	case model.RoleDoctor:
		if req.FacilityID == nil {
			return nil, apperrors.NewValidation("facility_id is required for doctor registration", nil)
		}
		if _, err := s.facilities.Get(ctx, *req.FacilityID); err != nil {
			return nil, err
		}
		user.FacilityID = req.FacilityID
	case model.RoleHospitalAdmin:
		if req.FacilityName == "" || req.FacilityCity == "" {
			return nil, apperrors.NewValidation("facility_name and facility_city are required for hospital admin registration", nil)
		}
		facility := &model.Facility{
			Name:    req.FacilityName,
			City:    req.FacilityCity,
			Address: req.FacilityAddress,
			Contact: req.FacilityContact,
		}
		if err := s.facilities.Create(ctx, facility); err != nil {
			return nil, err
		}
		user.FacilityID = &facility.ID
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if req.Role == model.RoleDoctor {
		provider := &model.Provider{
			UserID:         user.ID,
			FacilityID:     *req.FacilityID,
			Name:           req.Name,
			Specialization: req.Specialization,
			Available:      true,
		}
		if err := s.providers.Create(ctx, provider); err != nil {
			return nil, err
		}
	}

	s.sendOnboardingMail(ctx, user)

	s.logger.Info("user registered", "user_id", user.ID.String(), "role", string(user.Role))
	return s.issueTokens(user)
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials", nil)
	}

	if s.isLockedOut(user) {
		return nil, apperrors.NewUnauthorized("account is temporarily locked, try again later", nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordFailedAttempt(ctx, user)
		return nil, apperrors.NewUnauthorized("invalid credentials", nil)
	}

	now := time.Now()
	user.LoginAttempts = 0
	user.LastLoginAttempt = now
	user.LastLoginAt = &now
	if user.Status == model.UserStatusLocked {
		user.Status = model.UserStatusActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error(err, "failed to record login", "user_id", user.ID.String())
	}

	return s.issueTokens(user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token", err)
	}

	revoked, err := s.tokens.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, apperrors.NewInternal("failed to check token", err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorized("refresh token is revoked", nil)
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.NewUnauthorized("user no longer exists", err)
	}

	return s.issueTokens(user)
}

// Logout revokes the presented tokens so they stop validating before their
// natural expiry.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if claims, err := s.jwt.ValidateToken(accessToken); err == nil && claims != nil {
		if err := s.tokens.RevokeToken(ctx, accessToken, time.Now().Add(verificationTokenExpiry)); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := s.tokens.RevokeToken(ctx, refreshToken, time.Now().Add(verificationTokenExpiry)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateToken checks signature and revocation, and returns the caller.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.Actor, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token", err)
	}

	revoked, err := s.tokens.IsRevoked(ctx, token)
	if err != nil {
		return nil, apperrors.NewInternal("failed to check token", err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorized("token is revoked", nil)
	}

	return &model.Actor{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.tokens.ValidateVerificationToken(ctx, token)
	if err != nil {
		return apperrors.NewValidation("invalid or expired verification token", err)
	}
	if err := s.users.UpdateEmailVerified(ctx, userID, true); err != nil {
		return err
	}
	return s.tokens.InvalidateVerificationToken(ctx, token)
}

func (s *Service) issueTokens(user *model.User) (*model.TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.NewInternal("failed to generate access token", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.NewInternal("failed to generate refresh token", err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Role:         user.Role,
	}, nil
}

func (s *Service) isLockedOut(user *model.User) bool {
	if user.LoginAttempts < maxLoginAttempts {
		return false
	}
	return time.Since(user.LastLoginAttempt) < lockoutDuration
}

func (s *Service) recordFailedAttempt(ctx context.Context, user *model.User) {
	if time.Since(user.LastLoginAttempt) > lockoutDuration {
		user.LoginAttempts = 0
	}
	user.LoginAttempts++
	user.LastLoginAttempt = time.Now()
	if user.LoginAttempts >= maxLoginAttempts {
		user.Status = model.UserStatusLocked
		s.logger.Warn("account locked after repeated failures", "user_id", user.ID.String())
	}
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error(err, "failed to record login attempt", "user_id", user.ID.String())
	}
}

// sendOnboardingMail is best-effort: registration never fails on mail.
func (s *Service) sendOnboardingMail(ctx context.Context, user *model.User) {
	if s.email == nil {
		return
	}
	if err := s.email.SendWelcome(ctx, user.Email, user.Name); err != nil {
		s.logger.Error(err, "failed to send welcome email", "user_id", user.ID.String())
	}

	token, err := generateToken()
	if err != nil {
		s.logger.Error(err, "failed to generate verification token")
		return
	}
	if err := s.tokens.StoreVerificationToken(ctx, user.ID, token, time.Now().Add(verificationTokenExpiry)); err != nil {
		s.logger.Error(err, "failed to store verification token", "user_id", user.ID.String())
		return
	}
	if err := s.email.SendVerification(ctx, user.Email, user.Name, token); err != nil {
		s.logger.Error(err, "failed to send verification email", "user_id", user.ID.String())
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
