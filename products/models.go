// Package products implements the product catalog service.
package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Product is a catalog entry. Titles are unique across the catalog.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:prd"`

	ID          uuid.UUID  `bun:"id,pk,notnull" json:"id"`
	Title       string     `bun:"title,notnull,unique" json:"title"`
	Description string     `bun:"description" json:"description"`
	Price       float64    `bun:"price,notnull" json:"price"`
	Quantity    int        `bun:"quantity,notnull" json:"quantity"`
	IsActive    bool       `bun:"is_active,notnull" json:"is_active"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
