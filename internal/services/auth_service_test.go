package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"configurator/internal/models"
	"configurator/internal/repositories"
	"configurator/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

var testAdmin = services.AdminCredentials{Email: "admin@koenigsegg.com", Password: "Admin@123"}

func newAuthService(repo *MockUserRepository) *services.AuthService {
	return services.NewAuthService(repo, testJWTSecret, time.Hour, testAdmin, nil)
}

func TestAuthService_RegisterUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)
	ctx := context.Background()

	// Test successful registration
	user := &models.User{Email: "test@example.com", Password: "password123"}
	mockRepo.On("GetByEmail", ctx, user.Email).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(ctx, user)
	assert.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByEmail", ctx, user.Email).Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, &models.User{Email: user.Email, Password: "password123"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertExpectations(t)

	// Test remote failure while checking the email
	mockRepo.On("GetByEmail", ctx, "down@example.com").Return(nil, repositories.ErrRemoteUnavailable).Once()
	err = authService.RegisterUser(ctx, &models.User{Email: "down@example.com", Password: "password123"})
	assert.ErrorIs(t, err, services.ErrRemoteUnavailable)
	mockRepo.AssertExpectations(t)

	// Test the admin email is reserved and never reaches the repository
	err = authService.RegisterUser(ctx, &models.User{Email: " Admin@Koenigsegg.com", Password: "password123"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertNotCalled(t, "Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == " Admin@Koenigsegg.com"
	}))
}

func TestAuthService_LoginUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{ID: "user-123", Email: "test@example.com", Password: string(hashedPassword)}

	// Test successful login
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	token, err := authService.LoginUser(ctx, user.Email, "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Email, claims["email"])
	assert.Equal(t, false, claims["is_admin"])

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	_, err = authService.LoginUser(ctx, user.Email, "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, repositories.ErrNotFound).Once()
	_, err = authService.LoginUser(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginNeverSignsAdminClaim(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.DefaultCost)
	admin := &models.User{ID: "admin-1", Email: "admin@koenigsegg.com", Password: string(hashedPassword)}
	mockRepo.On("GetByEmail", ctx, admin.Email).Return(admin, nil).Once()

	token, err := authService.LoginUser(ctx, admin.Email, "supersecret")
	require.NoError(t, err)
	session, err := authService.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, session.IsAdmin)
	assert.Equal(t, services.AdminDenied, authService.Gate().Check(session))
}

func TestAuthService_AdminLogin(t *testing.T) {
	authService := newAuthService(new(MockUserRepository))

	token, err := authService.AdminLogin("Admin@Koenigsegg.com", "Admin@123")
	require.NoError(t, err)
	session, err := authService.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, session.IsAdmin)
	assert.Equal(t, "admin@koenigsegg.com", session.Email)
	assert.Equal(t, services.AdminGranted, authService.Gate().Check(session))

	_, err = authService.AdminLogin("admin@koenigsegg.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = authService.AdminLogin("someone@example.com", "Admin@123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	disabled := services.NewAuthService(new(MockUserRepository), testJWTSecret, time.Hour,
		services.AdminCredentials{Email: "admin@koenigsegg.com"}, nil)
	_, err = disabled.AdminLogin("admin@koenigsegg.com", "")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := newAuthService(new(MockUserRepository))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"email":   "test@example.com",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	// Test valid token
	session, err := authService.ValidateToken(validTokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-123", session.UserID)
	assert.Equal(t, "test@example.com", session.Email)
	assert.False(t, session.IsAdmin)

	// Test malformed token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	// Test token signed with another secret
	forged, _ := token.SignedString([]byte("other_secret"))
	_, err = authService.ValidateToken(forged)
	assert.Error(t, err)

	// Test expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestAdminGate_Check(t *testing.T) {
	gate := services.NewAdminGate("admin@koenigsegg.com")

	assert.Equal(t, services.AdminUnauthenticated, gate.Check(nil))
	assert.Equal(t, services.AdminUnauthenticated, gate.Check(&models.Session{}))
	assert.Equal(t, services.AdminGranted, gate.Check(&models.Session{UserID: "u", Email: "ADMIN@koenigsegg.com", IsAdmin: true}))
	assert.Equal(t, services.AdminDenied, gate.Check(&models.Session{UserID: "u", Email: "ADMIN@koenigsegg.com"}))
	assert.Equal(t, services.AdminDenied, gate.Check(&models.Session{UserID: "u", Email: "driver@example.com", IsAdmin: true}))
	assert.Equal(t, services.AdminDenied, gate.Check(&models.Session{UserID: "u", Email: "driver@example.com"}))
	assert.Equal(t, "denied", services.AdminDenied.String())
}
