// Package repository declares the storage contracts the services depend on.
//
// The store behaves like a small document store: find by id, find by a unique
// field, list, insert, update by id and delete by id. Implementations signal a
// missing document with apperror.ErrNotFound and a taken login identifier with
// apperror.ErrDuplicateIdentifier; every other failure is an unexpected error.
package repository

import (
	"context"

	"github.com/sakif/marketplace-api/internal/model"
)

// ProductFilter narrows a product listing.
// An empty OwnerID lists every product. Limit <= 0 means no limit.
type ProductFilter struct {
	OwnerID string
	Limit   int
	Offset  int
}

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, id string) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id string) error
}

// Store is an open database holding both collections.
type Store interface {
	Accounts() AccountRepository
	Products() ProductRepository
	// Ping checks connectivity to the underlying database.
	Ping(ctx context.Context) error
	Close() error
}
