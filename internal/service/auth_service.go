package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL = time.Hour
	tokenSubject    = "operator"
)

// Token exchange errors.
var (
	ErrAuthDisabled = errors.New("auth disabled")
	ErrInvalidKey   = errors.New("invalid key")
	ErrInvalidToken = errors.New("invalid token")
)

// AuthConfig holds the operator key hash and the token signing settings.
// Auth is enabled only when both SigningKey and KeyHash are set.
type AuthConfig struct {
	SigningKey string
	KeyHash    string // bcrypt hash of the operator key
	TokenTTL   time.Duration
}

// AuthService exchanges the operator key for short-lived JWTs.
type AuthService struct {
	cfg AuthConfig
}

func NewAuthService(cfg AuthConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &AuthService{cfg: cfg}
}

func (s *AuthService) Enabled() bool {
	return s.cfg.SigningKey != "" && s.cfg.KeyHash != ""
}

// Claims is the operator token payload; Subject names the key holder.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken checks key against the configured hash and returns a JWT.
func (s *AuthService) GenerateToken(key string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	if err := verifyKey(s.cfg.KeyHash, key); err != nil {
		return "", ErrInvalidKey
	}
	return s.issueToken()
}

// ParseToken validates accessToken and returns its subject.
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.SigningKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// HashKey returns the bcrypt hash to put in auth.key_hash.
func HashKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("key is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

func verifyKey(hash, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}

func (s *AuthService) issueToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tokenSubject,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString([]byte(s.cfg.SigningKey))
}
