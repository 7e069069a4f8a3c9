package recipes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
	"github.com/mikepea/recipes/pkg/recipes/auth"
	"github.com/mikepea/recipes/pkg/recipes/models"
	"github.com/mikepea/recipes/pkg/recipes/storage"
	"github.com/mikepea/recipes/pkg/recipes/validation"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MediaPrefix is the URL path stored images are served under
const MediaPrefix = "/media/"

// Handler handles recipe requests
type Handler struct {
	db             *gorm.DB
	store          *storage.Storage
	maxUploadBytes int64
}

// NewHandler creates a new recipes handler
func NewHandler(db *gorm.DB, store *storage.Storage, maxUploadBytes int64) *Handler {
	return &Handler{db: db, store: store, maxUploadBytes: maxUploadBytes}
}

// AttributeResponse is a tag or ingredient nested in a recipe detail
type AttributeResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// SummaryResponse represents a recipe in list responses
type SummaryResponse struct {
	ID            uint         `json:"id"`
	Title         string       `json:"title"`
	MinutesToCook int          `json:"minutes_to_cook"`
	Price         models.Price `json:"price"`
	Link          string       `json:"link"`
	Image         *string      `json:"image"`
	Tags          []uint       `json:"tags"`
	Ingredients   []uint       `json:"ingredients"`
}

// DetailResponse represents a single recipe with its tags and ingredients expanded
type DetailResponse struct {
	ID            uint                `json:"id"`
	Title         string              `json:"title"`
	MinutesToCook int                 `json:"minutes_to_cook"`
	Price         models.Price        `json:"price"`
	Link          string              `json:"link"`
	Image         *string             `json:"image"`
	Tags          []AttributeResponse `json:"tags"`
	Ingredients   []AttributeResponse `json:"ingredients"`
}

// ImageResponse is returned after an upload
type ImageResponse struct {
	ID    uint    `json:"id"`
	Image *string `json:"image"`
}

// MediaURL returns the public path for a storage key, or nil when there is no image
func MediaURL(key string) *string {
	if key == "" {
		return nil
	}
	url := MediaPrefix + key
	return &url
}

func toSummary(r models.Recipe) SummaryResponse {
	resp := SummaryResponse{
		ID:            r.ID,
		Title:         r.Title,
		MinutesToCook: r.MinutesToCook,
		Price:         r.Price,
		Link:          r.Link,
		Image:         MediaURL(r.Image),
		Tags:          make([]uint, len(r.Tags)),
		Ingredients:   make([]uint, len(r.Ingredients)),
	}
	for i, t := range r.Tags {
		resp.Tags[i] = t.ID
	}
	for i, ing := range r.Ingredients {
		resp.Ingredients[i] = ing.ID
	}
	return resp
}

func toDetail(r models.Recipe) DetailResponse {
	resp := DetailResponse{
		ID:            r.ID,
		Title:         r.Title,
		MinutesToCook: r.MinutesToCook,
		Price:         r.Price,
		Link:          r.Link,
		Image:         MediaURL(r.Image),
		Tags:          make([]AttributeResponse, len(r.Tags)),
		Ingredients:   make([]AttributeResponse, len(r.Ingredients)),
	}
	for i, t := range r.Tags {
		resp.Tags[i] = AttributeResponse{ID: t.ID, Name: t.Name}
	}
	for i, ing := range r.Ingredients {
		resp.Ingredients[i] = AttributeResponse{ID: ing.ID, Name: ing.Name}
	}
	return resp
}

// withAttributes preloads tags and ingredients in id order
func withAttributes(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("ingredients.id") })
}

// find loads a recipe owned by userID. Other owners' recipes are reported as missing.
func (h *Handler) find(c *gin.Context, userID uint, preload bool) (*models.Recipe, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, apierr.NotFound("Recipe")
	}

	query := h.db
	if preload {
		query = withAttributes(query)
	}

	var recipe models.Recipe
	if err := query.Where("id = ? AND user_id = ?", id, userID).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("Recipe")
		}
		return nil, apierr.Internal(err, "Failed to fetch recipe")
	}
	return &recipe, nil
}

// List returns the caller's recipes, newest first
// @Summary List recipes
// @Description List the caller's recipes, newest first. A recipe matches if it has any of the given tags or any of the given ingredients.
// @Tags recipes
// @Produce json
// @Param tags query string false "Comma-separated tag IDs"
// @Param ingredients query string false "Comma-separated ingredient IDs"
// @Success 200 {array} SummaryResponse
// @Failure 400 {object} apierr.Response "Malformed filter"
// @Failure 401 {object} apierr.Response "Authentication required"
// @Security TokenAuth
// @Router /api/recipes [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	filter, err := ParseFilter(c)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	query := withAttributes(h.db).Model(&models.Recipe{}).Where("recipes.user_id = ?", userID)
	query = filter.Apply(h.db, query)

	var recipes []models.Recipe
	if err := query.Order("recipes.id DESC").Find(&recipes).Error; err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to fetch recipes"))
		return
	}

	response := make([]SummaryResponse, len(recipes))
	for i, r := range recipes {
		response[i] = toSummary(r)
	}
	c.JSON(http.StatusOK, response)
}

// Get returns a single recipe in detail
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} DetailResponse
// @Failure 404 {object} apierr.Response "Recipe not found"
// @Security TokenAuth
// @Router /api/recipes/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	recipe, err := h.find(c, userID, true)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, toDetail(*recipe))
}

// Create creates a recipe owned by the caller
// @Summary Create a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Recipe details"
// @Success 201 {object} DetailResponse
// @Failure 400 {object} apierr.Response "Validation error"
// @Security TokenAuth
// @Router /api/recipes [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	req, err := h.decode(c, opCreate, userID)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	create := req.asCreate()

	recipe := models.Recipe{
		UserID:        userID,
		Title:         create.Title,
		MinutesToCook: create.MinutesToCook,
		Price:         create.Price,
		Link:          create.Link,
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		return replaceAttributes(tx, &recipe, create.Tags, create.Ingredients)
	})
	if err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to create recipe"))
		return
	}

	log.Info().Uint("recipe_id", recipe.ID).Uint("user_id", userID).Msg("Recipe created")
	h.respondDetail(c, http.StatusCreated, recipe.ID)
}

// Update replaces a recipe's fields (PUT)
// @Summary Replace a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body CreateRequest true "Recipe details"
// @Success 200 {object} DetailResponse
// @Failure 400 {object} apierr.Response "Validation error"
// @Failure 404 {object} apierr.Response "Recipe not found"
// @Security TokenAuth
// @Router /api/recipes/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	h.update(c, opUpdate)
}

// PartialUpdate changes only the supplied fields (PATCH)
// @Summary Update a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body UpdateRequest true "Fields to change"
// @Success 200 {object} DetailResponse
// @Failure 400 {object} apierr.Response "Validation error"
// @Failure 404 {object} apierr.Response "Recipe not found"
// @Security TokenAuth
// @Router /api/recipes/{id} [patch]
func (h *Handler) PartialUpdate(c *gin.Context) {
	h.update(c, opPartialUpdate)
}

func (h *Handler) update(c *gin.Context, op operation) {
	userID, _ := auth.GetUserID(c)

	recipe, err := h.find(c, userID, false)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	req, err := h.decode(c, op, userID)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	updates := req.columns()
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(recipe).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return err
			}
		}
		var tags, ingredients []uint
		if req.Tags != nil {
			tags = *req.Tags
		}
		if req.Ingredients != nil {
			ingredients = *req.Ingredients
		}
		return replaceSelected(tx, recipe, req.Tags != nil, tags, req.Ingredients != nil, ingredients)
	})
	if err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to update recipe"))
		return
	}

	h.respondDetail(c, http.StatusOK, recipe.ID)
}

// Delete removes a recipe, its associations and its stored image
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 404 {object} apierr.Response "Recipe not found"
// @Security TokenAuth
// @Router /api/recipes/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	recipe, err := h.find(c, userID, false)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := replaceSelected(tx, recipe, true, nil, true, nil); err != nil {
			return err
		}
		return tx.Delete(recipe).Error
	})
	if err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to delete recipe"))
		return
	}

	if recipe.Image != "" {
		h.removeObject(c, recipe.Image)
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) respondDetail(c *gin.Context, status int, id uint) {
	var recipe models.Recipe
	if err := withAttributes(h.db).First(&recipe, id).Error; err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to fetch recipe"))
		return
	}
	c.JSON(status, toDetail(recipe))
}

// replaceAttributes sets both association lists of a new recipe
func replaceAttributes(tx *gorm.DB, recipe *models.Recipe, tags, ingredients []uint) error {
	return replaceSelected(tx, recipe, true, tags, true, ingredients)
}

func replaceSelected(tx *gorm.DB, recipe *models.Recipe, setTags bool, tags []uint, setIngredients bool, ingredients []uint) error {
	if setTags {
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipe.ID).Error; err != nil {
			return err
		}
		for _, id := range tags {
			if err := tx.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", recipe.ID, id).Error; err != nil {
				return err
			}
		}
	}
	if setIngredients {
		if err := tx.Exec("DELETE FROM recipe_ingredients WHERE recipe_id = ?", recipe.ID).Error; err != nil {
			return err
		}
		for _, id := range ingredients {
			if err := tx.Exec("INSERT INTO recipe_ingredients (recipe_id, ingredient_id) VALUES (?, ?)", recipe.ID, id).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// decode parses the body for op and checks that every referenced tag and
// ingredient belongs to the caller. All field errors are reported together.
func (h *Handler) decode(c *gin.Context, op operation, userID uint) (UpdateRequest, error) {
	payload, err := validation.DecodePayload(c)
	if err != nil {
		return UpdateRequest{}, err
	}

	var errs validation.Errors
	req := payloadFor(op, payload, &errs)

	if req.Tags != nil {
		if err := h.checkOwned(&errs, "tags", *req.Tags, userID); err != nil {
			return UpdateRequest{}, err
		}
	}
	if req.Ingredients != nil {
		if err := h.checkOwned(&errs, "ingredients", *req.Ingredients, userID); err != nil {
			return UpdateRequest{}, err
		}
	}

	if err := errs.Err(); err != nil {
		return UpdateRequest{}, err
	}
	return req, nil
}

// checkOwned reports every id that is not a row of table owned by userID.
// The field is named after its table.
func (h *Handler) checkOwned(errs *validation.Errors, table string, ids []uint, userID uint) error {
	if len(ids) == 0 {
		return nil
	}

	var found []uint
	if err := h.db.Table(table).Where("id IN ? AND user_id = ?", ids, userID).Pluck("id", &found).Error; err != nil {
		return apierr.Internal(err, "Failed to check "+table)
	}

	owned := make(map[uint]bool, len(found))
	for _, id := range found {
		owned[id] = true
	}
	for _, id := range ids {
		if !owned[id] {
			errs.Add(table, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
		}
	}
	return nil
}

// RegisterRoutes registers recipe routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.PATCH("/:id", h.PartialUpdate)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/upload-image", h.UploadImage)
	rg.DELETE("/:id/delete-image", h.DeleteImage)
}
