package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// MaxListLimit caps a single page of products.
const MaxListLimit = 100

// ProductService manages product listings.
//
// Reads are public. Creating needs an authenticated caller, who becomes the
// owner regardless of the payload. Update and delete check ownership only
// when enforceOwnership is set.
type ProductService struct {
	products         repository.ProductRepository
	enforceOwnership bool
	logger           *slog.Logger
}

func NewProductService(products repository.ProductRepository, enforceOwnership bool, logger *slog.Logger) *ProductService {
	return &ProductService{
		products:         products,
		enforceOwnership: enforceOwnership,
		logger:           logger,
	}
}

// List returns products, newest first. A limit above MaxListLimit is clamped;
// negative paging values are rejected.
func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	if filter.Limit < 0 {
		return nil, apperror.ValidationFailed("limit", "limit must not be negative")
	}
	if filter.Offset < 0 {
		return nil, apperror.ValidationFailed("offset", "offset must not be negative")
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/product: listing: %w", err)
	}
	return products, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "product id is required")
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/product: getting %s: %w", id, err)
	}
	return product, nil
}

// Create stores a new product owned by owner.
//
// titulo, descripcion, categoria and precio are required. Unset optional
// fields take their defaults: imagen "", numeroLikes 0, activo true and
// fechaPublicacion now.
func (s *ProductService) Create(ctx context.Context, owner *model.Account, in model.ProductPatch) (*model.Product, error) {
	product := &model.Product{
		OwnerID: owner.ID,
		Active:  true,
	}

	var err error
	if product.Title, err = requiredString("titulo", deref(in.Title)); err != nil {
		return nil, err
	}
	if product.Description, err = requiredString("descripcion", deref(in.Description)); err != nil {
		return nil, err
	}
	if product.Category, err = requiredString("categoria", deref(in.Category)); err != nil {
		return nil, err
	}
	if in.Price == nil {
		return nil, apperror.ValidationFailed("precio", "precio is required")
	}
	product.Price = *in.Price

	if in.Image != nil {
		product.Image = strings.TrimSpace(*in.Image)
	}
	if in.PublishedAt != nil {
		product.PublishedAt = *in.PublishedAt
	}
	if in.Likes != nil {
		product.Likes = *in.Likes
	}
	if in.Active != nil {
		product.Active = *in.Active
	}
	if err := validateNumbers(product); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("service/product: creating: %w", err)
	}

	summary := owner.Summary()
	product.Owner = &summary

	s.logger.Info("product created",
		slog.String("productID", product.ID),
		slog.String("ownerID", owner.ID),
	)
	return product, nil
}

// Update applies a partial update. The owner never changes.
func (s *ProductService) Update(ctx context.Context, caller *model.Account, id string, patch model.ProductPatch) (*model.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(caller, product, "update"); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if product.Title, err = requiredString("titulo", *patch.Title); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if product.Description, err = requiredString("descripcion", *patch.Description); err != nil {
			return nil, err
		}
	}
	if patch.Category != nil {
		if product.Category, err = requiredString("categoria", *patch.Category); err != nil {
			return nil, err
		}
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Image != nil {
		product.Image = strings.TrimSpace(*patch.Image)
	}
	if patch.PublishedAt != nil {
		product.PublishedAt = *patch.PublishedAt
	}
	if patch.Likes != nil {
		product.Likes = *patch.Likes
	}
	if patch.Active != nil {
		product.Active = *patch.Active
	}
	if err := validateNumbers(product); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("service/product: updating %s: %w", id, err)
	}

	s.logger.Info("product updated", slog.String("productID", id))
	return product, nil
}

// Delete removes the product and returns it as it was.
func (s *ProductService) Delete(ctx context.Context, caller *model.Account, id string) (*model.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(caller, product, "delete"); err != nil {
		return nil, err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("service/product: deleting %s: %w", id, err)
	}

	s.logger.Info("product deleted", slog.String("productID", id))
	return product, nil
}

func (s *ProductService) checkOwner(caller *model.Account, product *model.Product, action string) error {
	if !s.enforceOwnership || caller.ID == product.OwnerID {
		return nil
	}
	s.logger.Warn("product "+action+" refused",
		slog.String("callerID", caller.ID),
		slog.String("productID", product.ID),
	)
	return apperror.Forbidden("you can only " + action + " your own products")
}

func validateNumbers(p *model.Product) error {
	if p.Price < 0 {
		return apperror.ValidationFailed("precio", "precio must not be negative")
	}
	if p.Likes < 0 {
		return apperror.ValidationFailed("numeroLikes", "numeroLikes must not be negative")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
