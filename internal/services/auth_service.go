package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountDisabled      = errors.New("account is not active")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	tokens   *TokenService
	logger   *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens *TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger.With(zap.String("component", "auth_service")),
	}
}

// RegisterInput represents the required information to create a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
}

// Register creates an active member account and issues a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, *Token, error) {
	email := normalizeEmail(input.Email)
	if len(input.Password) < constants.MinPasswordLength {
		return nil, nil, ErrPasswordTooShort
	}

	if err := s.ensureEmailAvailable(ctx, email); err != nil {
		return nil, nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hash,
		Phone:        input.Phone,
		Status:       models.UserStatusActive,
	}

	if err := s.userRepo.CreateWithRole(ctx, user, constants.RoleMember); err != nil {
		if errors.Is(err, repository.ErrCreateUser) {
			return nil, nil, ErrFailedToCreateUser
		}
		return nil, nil, fmt.Errorf("failed to complete registration: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", zap.Uint64("user_id", user.ID))
	return user, token, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues a token. Inactive and blocked
// accounts are refused even with the right password.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, *Token, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.logger.Warn("login refused for inactive account",
			zap.Uint64("user_id", user.ID),
			zap.String("status", string(user.Status)))
		return nil, nil, ErrAccountDisabled
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, err
	}

	return user, token, nil
}

// Authenticate resolves the user behind a bearer token.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, *Claims, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}

	if !user.IsActive() {
		return nil, nil, ErrAccountDisabled
	}

	return user, claims, nil
}

// Refresh issues a new token for user and revokes the one presented.
func (s *AuthService) Refresh(user *models.User, current *Claims) (*Token, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	s.tokens.Revoke(current)
	return token, nil
}

// Logout revokes the presented token.
func (s *AuthService) Logout(claims *Claims) {
	s.tokens.Revoke(claims)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (s *AuthService) ensureEmailAvailable(ctx context.Context, email string) error {
	return emailAvailable(ctx, s.userRepo, email, 0)
}

func emailAvailable(ctx context.Context, users repository.UserRepository, email string, exceptID uint64) error {
	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		if existing.ID == exceptID {
			return nil
		}
		return ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ErrFailedToHashPassword
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
