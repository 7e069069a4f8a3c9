package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
	"github.com/mikepea/recipes/pkg/recipes/auth"
	"github.com/mikepea/recipes/pkg/recipes/models"
	"github.com/mikepea/recipes/pkg/recipes/validation"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Handler handles registration, login and profile requests
type Handler struct {
	db     *gorm.DB
	tokens *auth.TokenService
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, tokens *auth.TokenService) *Handler {
	return &Handler{db: db, tokens: tokens}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" trim:"true" binding:"required,notblank,email,max=255"`
	Password string `json:"password" binding:"required,min=5"`
	Name     string `json:"name" trim:"true" binding:"required,notblank,min=3,max=255"`
}

// TokenRequest represents the login request body
type TokenRequest struct {
	Email    string `json:"email" trim:"true" binding:"required,notblank"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents a profile update. Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Password *string `json:"password" binding:"omitnil,min=5"`
	Name     *string `json:"name" trim:"true" binding:"omitnil,notblank,min=3,max=255"`
}

// TokenResponse represents the login response
type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse represents the public fields of a user. The password is never returned.
type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func userToResponse(user models.User) UserResponse {
	return UserResponse{Email: user.Email, Name: user.Name}
}

// Register handles user self-registration
// @Summary Register a new user
// @Description Create a user account. The email is stored trimmed and lower-cased.
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} UserResponse
// @Failure 400 {object} apierr.Response "Validation error"
// @Router /api/users/create [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apierr.Write(c, err)
		return
	}

	email := models.NormalizeEmail(req.Email)

	// Check if email already exists
	var count int64
	if err := h.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to create user"))
		return
	}
	if count > 0 {
		apierr.Write(c, apierr.Invalid(apierr.Fields{"email": {"User with this email already exists."}}))
		return
	}

	user, err := CreateUser(h.db, email, req.Password, req.Name, false)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	log.Info().Uint("user_id", user.ID).Msg("User registered")
	c.JSON(http.StatusCreated, userToResponse(*user))
}

// CreateToken handles login, returning the caller's reusable token
// @Summary Obtain a token
// @Description Authenticate with email and password. The same token is returned on every login until logout.
// @Tags users
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} apierr.Response "Invalid credentials"
// @Router /api/users/token [post]
func (h *Handler) CreateToken(c *gin.Context) {
	var req TokenRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apierr.Write(c, err)
		return
	}

	user, err := auth.Authenticate(h.db, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrNoCredentials) {
			apierr.Write(c, apierr.Invalid(apierr.Fields{
				validation.NonFieldErrors: {"Unable to authenticate with provided credentials"},
			}))
			return
		}
		apierr.Write(c, apierr.Internal(err, "Failed to authenticate"))
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// Logout revokes the caller's token
// @Summary Logout
// @Description Revoke the caller's token
// @Tags users
// @Success 204
// @Failure 401 {object} apierr.Response "Authentication required"
// @Security TokenAuth
// @Router /api/users/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	if err := h.tokens.Revoke(userID); err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to revoke token"))
		return
	}

	c.Status(http.StatusNoContent)
}

// Me returns the authenticated caller's profile
// @Summary Get current user
// @Tags users
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} apierr.Response "Authentication required"
// @Security TokenAuth
// @Router /api/users/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		apierr.Write(c, apierr.NotFound("User"))
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

// UpdateMe updates the caller's name and/or password. Only the caller's own
// record can be changed; the email is not editable here.
// @Summary Update current user
// @Description Change the caller's name and/or password. The email cannot be changed.
// @Tags users
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} UserResponse
// @Failure 400 {object} apierr.Response "Validation error"
// @Failure 401 {object} apierr.Response "Authentication required"
// @Security TokenAuth
// @Router /api/users/me [put]
// @Router /api/users/me [patch]
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req UpdateProfileRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apierr.Write(c, err)
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		apierr.Write(c, apierr.NotFound("User"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		user.Name = *req.Name
		updates["name"] = user.Name
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			apierr.Write(c, apierr.Internal(err, "Failed to process password"))
			return
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			apierr.Write(c, apierr.Internal(err, "Failed to update user"))
			return
		}
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

// CreateUser validates the email format, hashes the password and stores a new
// user. Superusers are also staff.
func CreateUser(db *gorm.DB, email, password, name string, superuser bool) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if msg := validation.Var(email, "required,email,max=255"); msg != "" {
		return nil, apierr.Invalid(apierr.Fields{"email": {msg}})
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apierr.Internal(err, "Failed to process password")
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		IsActive:     true,
		IsStaff:      superuser,
		IsSuperuser:  superuser,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Invalid(apierr.Fields{"email": {"User with this email already exists."}})
		}
		return nil, apierr.Internal(err, "Failed to create user")
	}
	return &user, nil
}

// RegisterRoutes registers the public user routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/create", h.Register)
	rg.POST("/token", h.CreateToken)
}

// RegisterProtectedRoutes registers the routes that require a token
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/logout", h.Logout)
	rg.GET("/me", h.Me)
	rg.PUT("/me", h.UpdateMe)
	rg.PATCH("/me", h.UpdateMe)
}
