package models

import "time"

// Recipe represents a dish owned by a single user
type Recipe struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	MinutesToCook int       `gorm:"not null" json:"minutes_to_cook"`
	Price         Price     `gorm:"type:decimal(10,2);not null" json:"price"`
	Link          string    `gorm:"size:255" json:"link"`
	Image         string    `gorm:"size:255" json:"image"` // storage key, empty when no image

	// Relationships
	User        User         `gorm:"foreignKey:UserID" json:"-"`
	Tags        []Tag        `gorm:"many2many:recipe_tags;" json:"tags,omitempty"`
	Ingredients []Ingredient `gorm:"many2many:recipe_ingredients;" json:"ingredients,omitempty"`
}
