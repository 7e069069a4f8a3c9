package recipes

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
	"github.com/mikepea/recipes/pkg/recipes/auth"
	"github.com/mikepea/recipes/pkg/recipes/storage"
	"github.com/rs/zerolog/log"
)

// ImageField is the multipart form field carrying the upload
const ImageField = "image"

// ImageKeyPrefix is the storage prefix for recipe images
const ImageKeyPrefix = "uploads/recipe/"

const msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// imageFormats maps decoded formats to file extensions
var imageFormats = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
}

// ImageKey returns a fresh storage key for an image with the given extension
func ImageKey(ext string) string {
	return fmt.Sprintf("%s%s.%s", ImageKeyPrefix, uuid.New().String(), ext)
}

func invalidImage(message string) error {
	return apierr.Invalid(apierr.Fields{ImageField: {message}})
}

// UploadImage stores a new image for a recipe, replacing any previous one.
// The new object is written before the row is updated and the old object is
// removed last, so the row never points at a missing object.
// @Summary Upload a recipe image
// @Description Store a JPEG, PNG or GIF image for the recipe, replacing any previous one
// @Tags recipes
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Recipe ID"
// @Param image formData file true "Image file"
// @Success 200 {object} ImageResponse
// @Failure 400 {object} apierr.Response "Invalid image"
// @Failure 404 {object} apierr.Response "Recipe not found"
// @Security TokenAuth
// @Router /api/recipes/{id}/upload-image [post]
func (h *Handler) UploadImage(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	recipe, err := h.find(c, userID, false)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	header, err := c.FormFile(ImageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierr.Write(c, invalidImage(fmt.Sprintf("Ensure the file is no larger than %d bytes.", h.maxUploadBytes)))
			return
		}
		apierr.Write(c, invalidImage("No file was submitted."))
		return
	}

	file, err := header.Open()
	if err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to read upload"))
		return
	}
	defer file.Close()

	format, err := decodeImage(file)
	if err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to read upload"))
		return
	}
	ext, supported := imageFormats[format]
	if !supported {
		apierr.Write(c, invalidImage(msgInvalidImage))
		return
	}

	ctx := c.Request.Context()
	key := ImageKey(ext)
	if err := h.store.Put(ctx, key, file, header.Size, "image/"+format); err != nil {
		apierr.Write(c, apierr.Internal(err, "Failed to store image"))
		return
	}

	previous := recipe.Image
	if err := h.db.Model(recipe).Update("image", key).Error; err != nil {
		h.removeObject(c, key)
		apierr.Write(c, apierr.Internal(err, "Failed to save image"))
		return
	}
	if previous != "" && previous != key {
		h.removeObject(c, previous)
	}

	log.Info().Uint("recipe_id", recipe.ID).Str("key", key).Msg("Recipe image uploaded")
	c.JSON(http.StatusOK, ImageResponse{ID: recipe.ID, Image: MediaURL(key)})
}

// DeleteImage removes a recipe's stored image and clears its reference
// @Summary Delete a recipe image
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 404 {object} apierr.Response "Recipe not found"
// @Security TokenAuth
// @Router /api/recipes/{id}/delete-image [delete]
func (h *Handler) DeleteImage(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	recipe, err := h.find(c, userID, false)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	previous := recipe.Image
	if previous != "" {
		if err := h.db.Model(recipe).Update("image", "").Error; err != nil {
			apierr.Write(c, apierr.Internal(err, "Failed to clear image"))
			return
		}
		h.removeObject(c, previous)
	}

	c.Status(http.StatusNoContent)
}

// removeObject deletes a stored object. Failures only leave an orphan, so
// they are logged rather than returned.
func (h *Handler) removeObject(c *gin.Context, key string) {
	if err := h.store.Delete(c.Request.Context(), key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to delete stored image")
	}
}

// ServeMedia streams a stored object. Only image keys are served.
// @Summary Serve a stored image
// @Tags media
// @Produce image/jpeg,image/png,image/gif
// @Param key path string true "Storage key"
// @Success 200 {file} binary
// @Failure 404 {object} apierr.Response "Not found"
// @Router /media/{key} [get]
func ServeMedia(store *storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if !strings.HasPrefix(key, ImageKeyPrefix) {
			apierr.Write(c, apierr.NotFound("File"))
			return
		}

		r, err := store.Get(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				apierr.Write(c, apierr.NotFound("File"))
				return
			}
			apierr.Write(c, apierr.Internal(err, "Failed to read file"))
			return
		}
		defer r.Close()

		contentType := "application/octet-stream"
		if ext := path.Ext(key); ext != "" {
			if t := mime.TypeByExtension(ext); t != "" {
				contentType = t
			}
		}
		c.DataFromReader(http.StatusOK, -1, contentType, r, nil)
	}
}

// decodeImage decodes the whole upload and rewinds it. Format comes from the
// decoded data, never the filename, and is empty when the body does not
// decode cleanly.
func decodeImage(file io.ReadSeeker) (string, error) {
	_, format, cfgErr := image.DecodeConfig(file)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if cfgErr != nil {
		return "", nil
	}

	_, _, decodeErr := image.Decode(file)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if decodeErr != nil {
		return "", nil
	}
	return format, nil
}
