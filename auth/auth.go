package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// TokenTTL is how long an issued token stays valid
const TokenTTL = 24 * time.Hour

// AuthModule authenticates the single admin account of the API. With an
// empty JWT secret authentication is disabled.
type AuthModule struct {
	adminUser string
	adminHash string
	JWTSecret string
	now       func() time.Time
}

func NewAuthModule(adminUser, adminPasswordHash, JWTSecret string) *AuthModule {
	return &AuthModule{
		adminUser: adminUser,
		adminHash: adminPasswordHash,
		JWTSecret: JWTSecret,
		now:       time.Now,
	}
}

// Enabled reports whether requests must carry a token
func (a *AuthModule) Enabled() bool {
	return a.JWTSecret != ""
}

// HashPassword returns the bcrypt hash to put in ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (a *AuthModule) generateJWT(username string) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"sub": username,
		"exp": now.Add(TokenTTL).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

func (a *AuthModule) authenticateUser(username, password string) error {
	if a.adminHash == "" || subtle.ConstantTimeCompare([]byte(username), []byte(a.adminUser)) != 1 {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.adminHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (a *AuthModule) LoginWithJWT(ctx context.Context, username, password string) (string, error) {
	if err := a.authenticateUser(username, password); err != nil {
		return "", err
	}
	return a.generateJWT(username)
}

// ValidateTokenJWT checks a token, with or without the "Bearer " prefix,
// and returns the user it was issued to
func (a *AuthModule) ValidateTokenJWT(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", ErrInvalidToken
	}
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return "", err
	}

	if claims, ok := parsedToken.Claims.(jwt.MapClaims); ok && parsedToken.Valid {
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return "", errors.New("invalid subject in token")
		}
		return sub, nil
	}
	return "", ErrInvalidToken
}
