package model

import "time"

// Product is a listing owned by exactly one account.
//
// OwnerID is always taken from the authenticated caller at creation time and
// never from the request body. Owner is filled in on reads with the owner's
// public fields.
type Product struct {
	ID          string          `json:"_id"`
	Title       string          `json:"titulo"`
	Description string          `json:"descripcion"`
	Category    string          `json:"categoria"`
	Price       float64         `json:"precio"`
	Image       string          `json:"imagen"`
	PublishedAt time.Time       `json:"fechaPublicacion"`
	Likes       int             `json:"numeroLikes"`
	Active      bool            `json:"activo"`
	OwnerID     string          `json:"usuarioId"`
	Owner       *AccountSummary `json:"usuario,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductPatch carries a partial product update. Nil fields are left unchanged.
// Ownership is fixed at creation, so there is no owner field.
type ProductPatch struct {
	Title       *string    `json:"titulo"`
	Description *string    `json:"descripcion"`
	Category    *string    `json:"categoria"`
	Price       *float64   `json:"precio"`
	Image       *string    `json:"imagen"`
	PublishedAt *time.Time `json:"fechaPublicacion"`
	Likes       *int       `json:"numeroLikes"`
	Active      *bool      `json:"activo"`
}
