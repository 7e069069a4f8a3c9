package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mikepea/recipes/pkg/recipes/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrRevokedToken  = errors.New("token has been revoked")
	ErrInactiveUser  = errors.New("user is inactive")
	ErrNoCredentials = errors.New("invalid credentials")
)

const (
	// TokenIDLength is the number of random bytes in a token id (20 bytes = 40 hex chars)
	TokenIDLength = 20
	issuer        = "recipes"
)

// Claims represents the JWT claims carried by a login token.
// The registered ID (jti) must match a stored AuthToken row.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues, validates and revokes login tokens
type TokenService struct {
	db     *gorm.DB
	secret []byte
}

// NewTokenService creates a token service signing with the given secret
func NewTokenService(db *gorm.DB, secret string) *TokenService {
	return &TokenService{db: db, secret: []byte(secret)}
}

// generateTokenID generates a new random token id
func generateTokenID() (string, error) {
	bytes := make([]byte, TokenIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *TokenService) sign(userID uint, tokenID string, issuedAt time.Time) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       tokenID,
			Subject:  strconv.FormatUint(uint64(userID), 10),
			IssuedAt: jwt.NewNumericDate(issuedAt),
			Issuer:   issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Issue returns the user's login token, creating it on first use.
// Subsequent calls return the same token until it is revoked.
func (s *TokenService) Issue(user *models.User) (string, error) {
	var existing models.AuthToken
	err := s.db.Where("user_id = ?", user.ID).First(&existing).Error
	if err == nil {
		return existing.Token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	tokenID, err := generateTokenID()
	if err != nil {
		return "", err
	}
	signed, err := s.sign(user.ID, tokenID, time.Now())
	if err != nil {
		return "", err
	}

	record := models.AuthToken{
		UserID:  user.ID,
		TokenID: tokenID,
		Token:   signed,
	}
	if err := s.db.Create(&record).Error; err != nil {
		// A concurrent login may have created the row first; reuse it
		if err := s.db.Where("user_id = ?", user.ID).First(&existing).Error; err == nil {
			return existing.Token, nil
		}
		return "", err
	}
	return signed, nil
}

// Validate checks the token signature and that it has not been revoked.
// It returns the active user the token belongs to.
func (s *TokenService) Validate(tokenString string) (*models.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	var record models.AuthToken
	if err := s.db.Where("token_id = ? AND user_id = ?", claims.ID, claims.UserID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRevokedToken
		}
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, record.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return &user, nil
}

// Revoke deletes the user's token. It is not an error if none exists.
func (s *TokenService) Revoke(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.AuthToken{}).Error
}

// Authenticate checks email and password and returns the matching active user.
// Unknown emails, wrong passwords and inactive users are indistinguishable.
func Authenticate(db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}
	if !user.IsActive || !CheckPassword(password, user.PasswordHash) {
		return nil, ErrNoCredentials
	}
	return &user, nil
}
