package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/logger"
	"livraison-backend/pkg/notify"
	"livraison-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// OTPCodes is the one-time code store contract the service authenticates with.
type OTPCodes interface {
	Save(ctx context.Context, phone string, role models.Role, code string) error
	Verify(ctx context.Context, phone string, role models.Role, code string) error
}

// PresenceStore mirrors livreur availability into the matching geo index.
type PresenceStore interface {
	SetOnline(ctx context.Context, livreurID string) error
	SetOffline(ctx context.Context, livreurID string) error
	ReportLocation(ctx context.Context, livreurID string, lat, lng float64) error
}

// ServiceInterface defines account and authentication business logic.
type ServiceInterface interface {
	RequestOTP(ctx context.Context, req models.RequestOTPRequest) error
	VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.AuthResponse, error)
	AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.AuthResponse, error)

	GetUserProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID string, data models.UserUpdateData) (*models.User, error)

	SetPresence(ctx context.Context, livreurID string, online bool) error
	ReportLocation(ctx context.Context, livreurID string, lat, lng float64) error

	ListUsers(ctx context.Context, role models.Role, page, limit int) ([]*models.User, int, error)
	SetAccountStatus(ctx context.Context, userID string, status models.AccountStatus) error
}

type Service struct {
	repo      RepositoryInterface
	otp       OTPCodes
	presence  PresenceStore
	notifier  notify.Sender
	log       logger.ILogger
	jwtSecret string
	tokenTTL  time.Duration
}

func NewService(
	repo RepositoryInterface,
	otp OTPCodes,
	presence PresenceStore,
	notifier notify.Sender,
	log logger.ILogger,
	jwtSecret string,
	tokenTTL time.Duration,
) ServiceInterface {
	return &Service{
		repo:      repo,
		otp:       otp,
		presence:  presence,
		notifier:  notifier,
		log:       log,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// RequestOTP issues a fresh login code and sends it by SMS. A suspended
// account is refused before any code is generated.
func (s *Service) RequestOTP(ctx context.Context, req models.RequestOTPRequest) error {
	existing, err := s.repo.FindByPhone(ctx, req.Phone, req.Role)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("users.RequestOTP: %w", err)
	}
	if existing != nil && existing.Status == models.StatusSuspended {
		return models.ErrSuspended
	}

	code, err := utils.GenerateOTP(6)
	if err != nil {
		return fmt.Errorf("users.RequestOTP: %w", err)
	}
	if err := s.otp.Save(ctx, req.Phone, req.Role, code); err != nil {
		return fmt.Errorf("users.RequestOTP: %w", err)
	}

	s.notifier.SMS(ctx, req.Phone, "Your login code is "+code)
	return nil
}

// VerifyOTP completes a phone login. An unknown phone with a valid code
// becomes a fresh account: OTP verification doubles as registration.
func (s *Service) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.AuthResponse, error) {
	if err := s.otp.Verify(ctx, req.Phone, req.Role, req.Code); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByPhone(ctx, req.Phone, req.Role)
	if errors.Is(err, models.ErrNotFound) {
		user = &models.User{
			ID:     uuid.New().String(),
			Role:   req.Role,
			Status: models.StatusActive,
			Phone:  req.Phone,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("users.VerifyOTP: register: %w", err)
		}
		s.log.Info("account registered via OTP",
			logger.String("user_id", user.ID), logger.String("role", string(user.Role)))
	} else if err != nil {
		return nil, fmt.Errorf("users.VerifyOTP: %w", err)
	}

	if user.Status == models.StatusSuspended {
		return nil, models.ErrSuspended
	}
	return s.generateAuthResponse(user)
}

func (s *Service) AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("users.AdminLogin: %w", err)
	}
	if user.Role != models.RoleAdmin {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return s.generateAuthResponse(user)
}

func (s *Service) generateAuthResponse(user *models.User) (*models.AuthResponse, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenSignedString, err := accessToken.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	user.PasswordHash = ""
	return &models.AuthResponse{
		AccessToken: tokenSignedString,
		User:        user,
	}, nil
}

func (s *Service) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Service) UpdateUserProfile(ctx context.Context, userID string, data models.UserUpdateData) (*models.User, error) {
	user, err := s.repo.Update(ctx, userID, data)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// SetPresence flips a livreur's availability in both the database and the
// matching geo index.
func (s *Service) SetPresence(ctx context.Context, livreurID string, online bool) error {
	if err := s.repo.SetOnline(ctx, livreurID, online); err != nil {
		return err
	}
	if online {
		return s.presence.SetOnline(ctx, livreurID)
	}
	return s.presence.SetOffline(ctx, livreurID)
}

func (s *Service) ReportLocation(ctx context.Context, livreurID string, lat, lng float64) error {
	return s.presence.ReportLocation(ctx, livreurID, lat, lng)
}

func (s *Service) ListUsers(ctx context.Context, role models.Role, page, limit int) ([]*models.User, int, error) {
	users, total, err := s.repo.ListByRole(ctx, role, page, limit)
	if err != nil {
		return nil, 0, err
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, total, nil
}

// SetAccountStatus is the admin moderation action. Suspending a livreur also
// pulls them out of the matching pool.
func (s *Service) SetAccountStatus(ctx context.Context, userID string, status models.AccountStatus) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.SetAccountStatus(ctx, userID, status); err != nil {
		return err
	}
	if user.Role == models.RoleLivreur && status == models.StatusSuspended {
		if err := s.presence.SetOffline(ctx, userID); err != nil {
			s.log.Warning("failed to clear presence on suspension",
				logger.String("user_id", userID), logger.Error(err))
		}
	}
	return nil
}
