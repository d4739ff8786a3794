package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"configurator/internal/models"
	"configurator/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials are the configured login for the designated admin identity.
type AdminCredentials struct {
	Email    string
	Password string
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	gate       *AdminGate
	admin      AdminCredentials
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, admin AdminCredentials, logger *zap.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		gate:       NewAdminGate(admin.Email),
		admin:      admin,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
		logger:     logger,
	}
}

// Gate returns the admin gate bound to the configured admin identity.
func (s *AuthService) Gate() *AdminGate { return s.gate }

// RegisterUser registers a new user, hashes their password, and saves them to the database.
// The designated admin email is reserved for AdminLogin.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) error {
	if s.gate.IsAdminEmail(user.Email) {
		return fmt.Errorf("%w: %s is reserved", ErrEmailTaken, user.Email)
	}
	existing, err := s.userRepo.GetByEmail(ctx, user.Email)
	if err == nil && existing != nil {
		return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// LoginUser authenticates a user and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the account exists.
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(models.Session{UserID: user.ID, Email: user.Email})
}

// AdminLogin checks the configured admin credentials and issues an admin
// session token. It is disabled when no admin password is configured.
func (s *AuthService) AdminLogin(email, password string) (string, error) {
	if s.admin.Password == "" || !s.gate.IsAdminEmail(email) {
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) != 1 {
		return "", ErrInvalidCredentials
	}
	userID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("admin:"+s.gate.adminEmail)).String()
	return s.IssueToken(models.Session{UserID: userID, Email: s.gate.adminEmail, IsAdmin: true})
}

// IssueToken signs a session into a JWT.
func (s *AuthService) IssueToken(session models.Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  session.UserID,
		"email":    session.Email,
		"is_admin": session.IsAdmin,
		"exp":      time.Now().Add(s.tokenDurat).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the session it carries.
func (s *AuthService) ValidateToken(tokenString string) (*models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.logger.Debug("token validation error", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, fmt.Errorf("invalid token: missing user_id")
	}
	email, _ := claims["email"].(string)
	isAdmin, _ := claims["is_admin"].(bool)
	return &models.Session{UserID: userID, Email: email, IsAdmin: isAdmin}, nil
}
