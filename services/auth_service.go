package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
)

const (
	SessionTTL        = 7 * 24 * time.Hour
	minPasswordLength = 8
)

// Session is what a verified token carries.
type Session struct {
	UserID uuid.UUID
	Email  string
}

type AuthService struct {
	db             *gorm.DB
	secret         []byte
	adminEmail     string
	providerSecret string
	log            *logger.Logger
	now            func() time.Time
}

func NewAuthService(db *gorm.DB, jwtSecret, adminEmail, providerSecret string, log *logger.Logger) *AuthService {
	return &AuthService{
		db:             db,
		secret:         []byte(jwtSecret),
		adminEmail:     normalizeEmail(adminEmail),
		providerSecret: providerSecret,
		log:            log.Service("auth"),
		now:            time.Now,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProviderSignInRequest is sent by a trusted identity provider after it has
// authenticated the user itself.
type ProviderSignInRequest struct {
	Email string  `json:"email" binding:"required,email"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cleanEmail(raw string) (string, error) {
	email := normalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apierr.BadRequest("invalid email address")
	}
	return email, nil
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email, err := cleanEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if s.IsAdmin(email) {
		return nil, apierr.Forbidden("this account signs in through the identity provider")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierr.BadRequest("name is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apierr.BadRequest("password must be at least %d characters", minPasswordLength)
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return nil, apierr.Conflict("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", "user_id", user.ID)
	return s.respond(&user)
}

// Login checks a password. The admin account has no password and is refused.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if s.IsAdmin(email) {
		return nil, apierr.Unauthorized("this account signs in through an external provider")
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, apierr.Unauthorized("this account signs in through an external provider")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierr.Unauthorized("invalid email or password")
	}
	return s.respond(&user)
}

// ProviderSignIn upserts the user by email and refreshes name and image.
// The provider has verified the address, so a password set on an existing
// row by whoever registered it first is dropped.
func (s *AuthService) ProviderSignIn(ctx context.Context, secret string, req *ProviderSignInRequest) (*AuthResponse, error) {
	if !s.VerifyProviderSecret(secret) {
		return nil, apierr.Unauthorized("invalid provider secret")
	}
	email, err := cleanEmail(req.Email)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: email, Name: strings.TrimSpace(req.Name), Image: req.Image}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.log.Info("user created by provider", "user_id", user.ID)
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	default:
		if name := strings.TrimSpace(req.Name); name != "" {
			user.Name = name
		}
		if req.Image != nil {
			user.Image = req.Image
		}
		if user.PasswordHash != "" {
			user.PasswordHash = ""
			s.log.Warn("password cleared on provider sign-in", "user_id", user.ID)
		}
		if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return s.respond(&user)
}

func (s *AuthService) VerifyProviderSecret(secret string) bool {
	if s.providerSecret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(s.providerSecret)) == 1
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := first(ctx, s.db, &user, "user", userID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) respond(user *models.User) (*AuthResponse, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"exp":     now.Add(SessionTTL).Unix(),
		"iat":     now.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies an HS256 session token.
func (s *AuthService) ParseToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierr.Unauthorized("session has expired")
		}
		return nil, apierr.Unauthorized("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apierr.Unauthorized("invalid session token")
	}
	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, apierr.Unauthorized("invalid token claims: user_id")
	}
	email, _ := claims["email"].(string)
	return &Session{UserID: userID, Email: email}, nil
}

func (s *AuthService) IsAdmin(email string) bool {
	return s.adminEmail != "" && normalizeEmail(email) == s.adminEmail
}
