package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mikepea/recipes/pkg/recipes/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	hash, _ := HashPassword("password123")
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(tokens *TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Middleware(tokens), func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID, "email": identity.Email})
	})
	return r
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should return true for correct password")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should return false for incorrect password")
	}
}

func TestIssueReusesToken(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(db, testSecret)
	user := createTestUser(t, db, "test@example.com")

	first, err := tokens.Issue(&user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	second, err := tokens.Issue(&user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if first != second {
		t.Error("Expected the same token on subsequent logins")
	}

	var count int64
	db.Model(&models.AuthToken{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 stored token, got %d", count)
	}
}

func TestValidateToken(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(db, testSecret)
	user := createTestUser(t, db, "test@example.com")

	token, _ := tokens.Issue(&user)

	validated, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if validated.ID != user.ID {
		t.Errorf("Expected user %d, got %d", user.ID, validated.ID)
	}
}

func TestInvalidToken(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(db, testSecret)

	if _, err := tokens.Validate("invalid-token"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenSignedWithOtherSecret(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "test@example.com")

	token, _ := NewTokenService(db, "other-secret").Issue(&user)

	if _, err := NewTokenService(db, testSecret).Validate(token); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestForgedTokenIDIsRejected(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(db, testSecret)
	user := createTestUser(t, db, "test@example.com")

	// Correctly signed but never issued
	claims := &Claims{UserID: user.ID, RegisteredClaims: jwt.RegisteredClaims{ID: "not-issued", Issuer: issuer}}
	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))

	if _, err := tokens.Validate(forged); err != ErrRevokedToken {
		t.Errorf("Expected ErrRevokedToken, got %v", err)
	}
}

func TestRevokeInvalidatesToken(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(db, testSecret)
	user := createTestUser(t, db, "test@example.com")

	token, _ := tokens.Issue(&user)
	if err := tokens.Revoke(user.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	if _, err := tokens.Validate(token); err != ErrRevokedToken {
		t.Errorf("Expected ErrRevokedToken, got %v", err)
	}

	// A new login issues a fresh token
	fresh, _ := tokens.Issue(&user)
	if fresh == token {
		t.Error("Expected a new token after revocation")
	}
}

func TestInactiveUserTokenRejected(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(db, testSecret)
	user := createTestUser(t, db, "test@example.com")

	token, _ := tokens.Issue(&user)
	db.Model(&user).Update("is_active", false)

	if _, err := tokens.Validate(token); err != ErrInactiveUser {
		t.Errorf("Expected ErrInactiveUser, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "test@example.com")

	if _, err := Authenticate(db, "TEST@example.com", "password123"); err != nil {
		t.Errorf("Expected authentication to succeed with case-folded email, got %v", err)
	}
	if _, err := Authenticate(db, "test@example.com", "wrong"); err != ErrNoCredentials {
		t.Errorf("Expected ErrNoCredentials for wrong password, got %v", err)
	}
	if _, err := Authenticate(db, "nobody@example.com", "password123"); err != ErrNoCredentials {
		t.Errorf("Expected ErrNoCredentials for unknown email, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenService(db, testSecret)
	router := setupTestRouter(tokens)
	user := createTestUser(t, db, "test@example.com")
	token, _ := tokens.Issue(&user)

	tests := []struct {
		name     string
		header   string
		expected int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"token scheme", "Token " + token, http.StatusOK},
		{"bearer scheme", "Bearer " + token, http.StatusOK},
		{"unknown scheme", "Basic " + token, http.StatusUnauthorized},
		{"no token", "Token", http.StatusUnauthorized},
		{"garbage token", "Token garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != tt.expected {
				t.Errorf("Expected status %d, got %d: %s", tt.expected, resp.Code, resp.Body.String())
			}
		})
	}
}
