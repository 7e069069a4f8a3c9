package recipes

import (
	"github.com/mikepea/recipes/pkg/recipes/models"
	"github.com/mikepea/recipes/pkg/recipes/validation"
)

type operation int

const (
	opCreate operation = iota
	opUpdate
	opPartialUpdate
)

// CreateRequest holds a fully validated new recipe
type CreateRequest struct {
	Title         string
	MinutesToCook int
	Price         models.Price
	Link          string
	Tags          []uint
	Ingredients   []uint
}

// UpdateRequest holds the fields supplied in a write. Nil fields were not sent.
type UpdateRequest struct {
	Title         *string
	MinutesToCook *int
	Price         *models.Price
	Link          *string
	Tags          *[]uint
	Ingredients   *[]uint
}

// payloadFor validates a payload for op. Create and PUT require title,
// minutes_to_cook and price; PATCH only validates what was sent.
func payloadFor(op operation, p validation.Payload, errs *validation.Errors) UpdateRequest {
	required := op != opPartialUpdate
	var req UpdateRequest

	if title, ok := p.String(errs, "title", required, false, "max=255"); ok {
		req.Title = &title
	}
	if minutes, ok := p.Integer(errs, "minutes_to_cook", required); ok {
		req.MinutesToCook = &minutes
	}
	if price, ok := p.Price(errs, "price", required); ok {
		req.Price = &price
	}
	if link, ok := p.String(errs, "link", false, true, "max=255,http_url"); ok {
		req.Link = &link
	}
	if tags, ok := p.IDList(errs, "tags", false); ok {
		req.Tags = &tags
	}
	if ingredients, ok := p.IDList(errs, "ingredients", false); ok {
		req.Ingredients = &ingredients
	}
	return req
}

// asCreate flattens a validated create payload. Optional lists default to empty.
func (r UpdateRequest) asCreate() CreateRequest {
	var req CreateRequest
	if r.Title != nil {
		req.Title = *r.Title
	}
	if r.MinutesToCook != nil {
		req.MinutesToCook = *r.MinutesToCook
	}
	if r.Price != nil {
		req.Price = *r.Price
	}
	if r.Link != nil {
		req.Link = *r.Link
	}
	if r.Tags != nil {
		req.Tags = *r.Tags
	}
	if r.Ingredients != nil {
		req.Ingredients = *r.Ingredients
	}
	return req
}

// columns returns the scalar column updates for the supplied fields
func (r UpdateRequest) columns() map[string]interface{} {
	updates := map[string]interface{}{}
	if r.Title != nil {
		updates["title"] = *r.Title
	}
	if r.MinutesToCook != nil {
		updates["minutes_to_cook"] = *r.MinutesToCook
	}
	if r.Price != nil {
		updates["price"] = *r.Price
	}
	if r.Link != nil {
		updates["link"] = *r.Link
	}
	return updates
}
