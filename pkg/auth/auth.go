package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/workshop-scheduler/pkg/config"
	"github.com/arnavshah/workshop-scheduler/pkg/database"
)

var jwtAlgorithm = jwt.SigningMethodHS256

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs admin tokens and API keys with the configured secrets
type Manager struct {
	jwtSecret    []byte
	masterSecret []byte
	bcryptCost   int
	tokenTTL     time.Duration
}

// NewManager creates a Manager from the auth section of the config
func NewManager(cfg config.AuthConfig) *Manager {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = 14
	}
	return &Manager{
		jwtSecret:    []byte(cfg.JWTSecret),
		masterSecret: []byte(cfg.APIMasterSecret),
		bcryptCost:   cost,
		tokenTTL:     24 * time.Hour,
	}
}

// HashPassword hashes a password using bcrypt
func (m *Manager) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), m.bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func (m *Manager) CreateToken(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(m.jwtSecret)
}

// VerifyToken verifies a JWT token
func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, errors.New("unexpected signing method")
		}
		return m.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// EnsureAdminExists creates the configured admin when no admin exists yet
func (m *Manager) EnsureAdminExists(db *gorm.DB, username, password string, logger *zap.Logger) error {
	var count int64
	if err := db.Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := m.HashPassword(password)
	if err != nil {
		return err
	}

	user := database.MasterUser{
		Username:     username,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	logger.Info("default admin user created", zap.String("username", username))
	return nil
}

func (m *Manager) sign(userID string) string {
	h := hmac.New(sha256.New, m.masterSecret)
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateHMACKey creates a signed API key using HMAC-SHA256
func (m *Manager) GenerateHMACKey(userID string) string {
	return userID + "." + m.sign(userID)
}

// VerifyHMACKey validates an HMAC-signed API key and returns its user id
func (m *Manager) VerifyHMACKey(key string) (string, error) {
	userID, providedSignature, ok := strings.Cut(key, ".")
	if !ok || strings.Contains(providedSignature, ".") {
		return "", errors.New("invalid key format")
	}

	// Constant-time comparison.
	if !hmac.Equal([]byte(providedSignature), []byte(m.sign(userID))) {
		return "", errors.New("invalid signature")
	}

	return userID, nil
}
