package recipes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
	"gorm.io/gorm"
)

// Filter restricts a recipe list to recipes carrying any of the given
// tags or any of the given ingredients.
type Filter struct {
	Tags        []uint
	Ingredients []uint
}

// Empty reports whether the filter matches every recipe
func (f Filter) Empty() bool {
	return len(f.Tags) == 0 && len(f.Ingredients) == 0
}

// parseIDs splits a comma-separated id list. Empty items are skipped.
func parseIDs(value string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// ParseFilter reads the tags and ingredients query parameters
func ParseFilter(c *gin.Context) (Filter, error) {
	var f Filter
	fields := apierr.Fields{}

	if value := c.Query("tags"); value != "" {
		ids, err := parseIDs(value)
		if err != nil {
			fields["tags"] = []string{"Enter a comma-separated list of ids."}
		}
		f.Tags = ids
	}
	if value := c.Query("ingredients"); value != "" {
		ids, err := parseIDs(value)
		if err != nil {
			fields["ingredients"] = []string{"Enter a comma-separated list of ids."}
		}
		f.Ingredients = ids
	}

	if len(fields) > 0 {
		return Filter{}, apierr.Invalid(fields)
	}
	return f, nil
}

// Apply adds the filter to a recipe query. Subqueries are used instead of
// joins so a recipe matching several ids is returned once.
func (f Filter) Apply(db, query *gorm.DB) *gorm.DB {
	if f.Empty() {
		return query
	}

	var conditions *gorm.DB
	or := func(subquery *gorm.DB) {
		if conditions == nil {
			conditions = db.Where("recipes.id IN (?)", subquery)
			return
		}
		conditions = conditions.Or("recipes.id IN (?)", subquery)
	}
	if len(f.Tags) > 0 {
		or(db.Table("recipe_tags").Select("recipe_id").Where("tag_id IN ?", f.Tags))
	}
	if len(f.Ingredients) > 0 {
		or(db.Table("recipe_ingredients").Select("recipe_id").Where("ingredient_id IN ?", f.Ingredients))
	}
	return query.Where(conditions)
}
