package models

import "time"

// Product represents a catalog item. All seven descriptive fields are mandatory.
type Product struct {
	ID          string    `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Brand       string    `json:"brand" validate:"required"`
	Price       float64   `json:"price" validate:"required"`
	Category    string    `json:"category" validate:"required"`
	ImageURL    string    `json:"imageUrl" validate:"required"`
	AmazonURL   string    `json:"amazonUrl" validate:"required"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ApplyFields copies the mutable fields of src onto p.
func (p *Product) ApplyFields(src Product) {
	p.Title = src.Title
	p.Description = src.Description
	p.Brand = src.Brand
	p.Price = src.Price
	p.Category = src.Category
	p.ImageURL = src.ImageURL
	p.AmazonURL = src.AmazonURL
}
