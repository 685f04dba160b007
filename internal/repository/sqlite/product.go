package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// compile-time check that *ProductDB implements repository.ProductRepository
var _ repository.ProductRepository = (*ProductDB)(nil)

// ProductDB handles product persistence.
type ProductDB struct {
	conn *sql.DB
}

// Every read joins the owner so the product comes back with its public
// owner fields already filled in.
const productSelect = `
	SELECT p.id, p.title, p.description, p.category, p.price, p.image,
	       p.published_at, p.likes, p.active, p.owner_id, p.created_at, p.updated_at,
	       a.id, a.name, a.email, a.phone
	FROM products p
	JOIN accounts a ON a.id = p.owner_id`

// Create inserts a new product. OwnerID must reference an existing account.
// A zero PublishedAt defaults to the creation time.
func (p *ProductDB) Create(ctx context.Context, product *model.Product) error {
	now := time.Now().UTC()
	product.ID = xid.New().String()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.PublishedAt.IsZero() {
		product.PublishedAt = now
	}

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO products (id, title, description, category, price, image,
		                       published_at, likes, active, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Title,
		product.Description,
		product.Category,
		product.Price,
		product.Image,
		product.PublishedAt,
		product.Likes,
		product.Active,
		product.OwnerID,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting product: %w", err)
	}
	return nil
}

// GetByID returns the product with its owner populated.
func (p *ProductDB) GetByID(ctx context.Context, id string) (*model.Product, error) {
	row := p.conn.QueryRowContext(ctx, productSelect+` WHERE p.id = ?`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("product", id)
		}
		return nil, fmt.Errorf("sqlite: getting product %s: %w", id, err)
	}
	return product, nil
}

// List returns products newest first, narrowed by filter.
func (p *ProductDB) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(productSelect)

	if filter.OwnerID != "" {
		query.WriteString(` WHERE p.owner_id = ?`)
		args = append(args, filter.OwnerID)
	}
	query.WriteString(` ORDER BY p.created_at DESC, p.id DESC`)

	// SQLite only accepts OFFSET after a LIMIT; -1 means unbounded.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, max(filter.Offset, 0))
	}

	rows, err := p.conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning product row: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating product rows: %w", err)
	}
	return products, nil
}

// Update overwrites the mutable columns. owner_id is never touched.
func (p *ProductDB) Update(ctx context.Context, product *model.Product) error {
	product.UpdatedAt = time.Now().UTC()

	result, err := p.conn.ExecContext(ctx,
		`UPDATE products
		 SET title = ?, description = ?, category = ?, price = ?, image = ?,
		     published_at = ?, likes = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		product.Title,
		product.Description,
		product.Category,
		product.Price,
		product.Image,
		product.PublishedAt,
		product.Likes,
		product.Active,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating product %s: %w", product.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("product", product.ID)
	}
	return nil
}

func (p *ProductDB) Delete(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting product %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("product", id)
	}
	return nil
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		prod  model.Product
		owner model.AccountSummary
	)
	err := row.Scan(
		&prod.ID,
		&prod.Title,
		&prod.Description,
		&prod.Category,
		&prod.Price,
		&prod.Image,
		&prod.PublishedAt,
		&prod.Likes,
		&prod.Active,
		&prod.OwnerID,
		&prod.CreatedAt,
		&prod.UpdatedAt,
		&owner.ID,
		&owner.Name,
		&owner.Email,
		&owner.Phone,
	)
	if err != nil {
		return nil, err
	}
	prod.Owner = &owner
	return &prod, nil
}
