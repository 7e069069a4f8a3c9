package attributes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
	"github.com/mikepea/recipes/pkg/recipes/auth"
	"github.com/mikepea/recipes/pkg/recipes/validation"
	"gorm.io/gorm"
)

// Kind describes one recipe attribute table and how recipes reference it
type Kind struct {
	Resource   string // singular name used in error messages
	Table      string
	JoinTable  string
	JoinColumn string
}

var (
	// Tags are labels attached to recipes
	Tags = Kind{Resource: "Tag", Table: "tags", JoinTable: "recipe_tags", JoinColumn: "tag_id"}
	// Ingredients are the things recipes are made from
	Ingredients = Kind{Resource: "Ingredient", Table: "ingredients", JoinTable: "recipe_ingredients", JoinColumn: "ingredient_id"}
)

// row mirrors models.Tag and models.Ingredient, which share a shape
type row struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint
	Name      string
}

// Handler handles tag or ingredient requests, depending on its Kind
type Handler struct {
	db   *gorm.DB
	kind Kind
}

// NewHandler creates a handler for the given attribute kind
func NewHandler(db *gorm.DB, kind Kind) *Handler {
	return &Handler{db: db, kind: kind}
}

// NewTagHandler creates a tags handler
func NewTagHandler(db *gorm.DB) *Handler {
	return NewHandler(db, Tags)
}

// NewIngredientHandler creates an ingredients handler
func NewIngredientHandler(db *gorm.DB) *Handler {
	return NewHandler(db, Ingredients)
}

// Response represents a tag or ingredient in API responses
type Response struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CreateRequest is the body for creating or replacing an attribute
type CreateRequest struct {
	Name string `json:"name" trim:"true" binding:"required,notblank,max=255"`
}

// UpdateRequest is the body for a partial update
type UpdateRequest struct {
	Name *string `json:"name" trim:"true" binding:"omitnil,notblank,max=255"`
}

func toResponse(r row) Response {
	return Response{ID: r.ID, Name: r.Name}
}

// find loads an attribute owned by userID; other owners' rows are reported as missing
func (h *Handler) find(c *gin.Context, userID uint) (row, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return row{}, apierr.NotFound(h.kind.Resource)
	}

	var r row
	if err := h.db.Table(h.kind.Table).Where("id = ? AND user_id = ?", id, userID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row{}, apierr.NotFound(h.kind.Resource)
		}
		return row{}, apierr.Internal(err, fmt.Sprintf("Failed to fetch %s", strings.ToLower(h.kind.Resource)))
	}
	return r, nil
}

// parseAssignedOnly reads the assigned_only flag. Any non-zero integer enables it.
func parseAssignedOnly(c *gin.Context) (bool, error) {
	value := strings.TrimSpace(c.Query("assigned_only"))
	if value == "" {
		return false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return false, apierr.Invalid(apierr.Fields{"assigned_only": {"A valid integer is required."}})
	}
	return n != 0, nil
}

// List returns the caller's attributes ordered by name, then id, both descending
// @Summary List tags or ingredients
// @Tags attributes
// @Produce json
// @Param assigned_only query int false "Only rows used by at least one recipe" Enums(0, 1)
// @Success 200 {array} Response
// @Failure 401 {object} apierr.Response "Authentication required"
// @Security TokenAuth
// @Router /api/tags [get]
// @Router /api/ingredients [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	assignedOnly, err := parseAssignedOnly(c)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	query := h.db.Table(h.kind.Table).Where("user_id = ?", userID)
	if assignedOnly {
		// EXISTS keeps each row once no matter how many recipes use it
		query = query.Where(fmt.Sprintf("EXISTS (SELECT 1 FROM %s j WHERE j.%s = %s.id)",
			h.kind.JoinTable, h.kind.JoinColumn, h.kind.Table))
	}

	var rows []row
	if err := query.Order("name DESC").Order("id DESC").Find(&rows).Error; err != nil {
		apierr.Write(c, apierr.Internal(err, fmt.Sprintf("Failed to fetch %s", h.kind.Table)))
		return
	}

	response := make([]Response, len(rows))
	for i, r := range rows {
		response[i] = toResponse(r)
	}
	c.JSON(http.StatusOK, response)
}

// Get returns a single attribute
// @Summary Get a tag or ingredient
// @Tags attributes
// @Produce json
// @Param id path int true "Tag or ingredient ID"
// @Success 200 {object} Response
// @Failure 404 {object} apierr.Response "Not found"
// @Security TokenAuth
// @Router /api/tags/{id} [get]
// @Router /api/ingredients/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	r, err := h.find(c, userID)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(r))
}

// Create creates an attribute owned by the caller
// @Summary Create a tag or ingredient
// @Tags attributes
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Name"
// @Success 201 {object} Response
// @Failure 400 {object} apierr.Response "Validation error"
// @Security TokenAuth
// @Router /api/tags [post]
// @Router /api/ingredients [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apierr.Write(c, err)
		return
	}

	r := row{UserID: userID, Name: req.Name}
	if err := h.db.Table(h.kind.Table).Create(&r).Error; err != nil {
		apierr.Write(c, apierr.Internal(err, fmt.Sprintf("Failed to create %s", strings.ToLower(h.kind.Resource))))
		return
	}

	c.JSON(http.StatusCreated, toResponse(r))
}

// Update replaces an attribute's name (PUT)
// @Summary Replace a tag or ingredient
// @Tags attributes
// @Accept json
// @Produce json
// @Param id path int true "Tag or ingredient ID"
// @Param request body CreateRequest true "Name"
// @Success 200 {object} Response
// @Failure 400 {object} apierr.Response "Validation error"
// @Failure 404 {object} apierr.Response "Not found"
// @Security TokenAuth
// @Router /api/tags/{id} [put]
// @Router /api/ingredients/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	r, err := h.find(c, userID)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	var req CreateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apierr.Write(c, err)
		return
	}

	if err := h.rename(&r, req.Name); err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(r))
}

// PartialUpdate changes only the supplied fields (PATCH)
// @Summary Update a tag or ingredient
// @Tags attributes
// @Accept json
// @Produce json
// @Param id path int true "Tag or ingredient ID"
// @Param request body UpdateRequest true "Fields to change"
// @Success 200 {object} Response
// @Failure 400 {object} apierr.Response "Validation error"
// @Failure 404 {object} apierr.Response "Not found"
// @Security TokenAuth
// @Router /api/tags/{id} [patch]
// @Router /api/ingredients/{id} [patch]
func (h *Handler) PartialUpdate(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	r, err := h.find(c, userID)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	var req UpdateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		apierr.Write(c, err)
		return
	}

	if req.Name != nil {
		if err := h.rename(&r, *req.Name); err != nil {
			apierr.Write(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, toResponse(r))
}

func (h *Handler) rename(r *row, name string) error {
	now := time.Now()
	err := h.db.Table(h.kind.Table).Where("id = ?", r.ID).
		Updates(map[string]interface{}{"name": name, "updated_at": now}).Error
	if err != nil {
		return apierr.Internal(err, fmt.Sprintf("Failed to update %s", strings.ToLower(h.kind.Resource)))
	}
	r.Name = name
	r.UpdatedAt = now
	return nil
}

// Delete removes an attribute and detaches it from every recipe
// @Summary Delete a tag or ingredient
// @Tags attributes
// @Param id path int true "Tag or ingredient ID"
// @Success 204
// @Failure 404 {object} apierr.Response "Not found"
// @Security TokenAuth
// @Router /api/tags/{id} [delete]
// @Router /api/ingredients/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	r, err := h.find(c, userID)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", h.kind.JoinTable, h.kind.JoinColumn), r.ID).Error; err != nil {
			return err
		}
		return tx.Table(h.kind.Table).Where("id = ?", r.ID).Delete(&row{}).Error
	})
	if err != nil {
		apierr.Write(c, apierr.Internal(err, fmt.Sprintf("Failed to delete %s", strings.ToLower(h.kind.Resource))))
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the attribute routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.PATCH("/:id", h.PartialUpdate)
	rg.DELETE("/:id", h.Delete)
}
