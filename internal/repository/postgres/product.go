package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

var _ repository.ProductRepository = (*ProductDB)(nil)

type ProductDB struct {
	conn *sql.DB
}

const productSelect = `
	SELECT p.id, p.title, p.description, p.category, p.price, p.image,
	       p.published_at, p.likes, p.active, p.owner_id, p.created_at, p.updated_at,
	       a.id, a.name, a.email, a.phone
	FROM products p
	JOIN accounts a ON a.id = p.owner_id`

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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		product.ID, product.Title, product.Description, product.Category,
		product.Price, product.Image, product.PublishedAt, product.Likes,
		product.Active, product.OwnerID, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting product: %w", err)
	}
	return nil
}

func (p *ProductDB) GetByID(ctx context.Context, id string) (*model.Product, error) {
	product, err := scanProduct(p.conn.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("product", id)
		}
		return nil, fmt.Errorf("postgres: getting product %s: %w", id, err)
	}
	return product, nil
}

func (p *ProductDB) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	var (
		query strings.Builder
		args  []any
	)
	// next appends an argument and returns its $N placeholder.
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	query.WriteString(productSelect)
	if filter.OwnerID != "" {
		query.WriteString(` WHERE p.owner_id = ` + next(filter.OwnerID))
	}
	query.WriteString(` ORDER BY p.created_at DESC, p.id DESC`)
	if filter.Limit > 0 {
		query.WriteString(` LIMIT ` + next(filter.Limit))
	}
	if filter.Offset > 0 {
		query.WriteString(` OFFSET ` + next(filter.Offset))
	}

	rows, err := p.conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning product row: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating product rows: %w", err)
	}
	return products, nil
}

func (p *ProductDB) Update(ctx context.Context, product *model.Product) error {
	product.UpdatedAt = time.Now().UTC()

	result, err := p.conn.ExecContext(ctx,
		`UPDATE products
		 SET title = $1, description = $2, category = $3, price = $4, image = $5,
		     published_at = $6, likes = $7, active = $8, updated_at = $9
		 WHERE id = $10`,
		product.Title, product.Description, product.Category, product.Price,
		product.Image, product.PublishedAt, product.Likes, product.Active,
		product.UpdatedAt, product.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating product %s: %w", product.ID, err)
	}
	return expectOneRow(result, "product", product.ID)
}

func (p *ProductDB) Delete(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting product %s: %w", id, err)
	}
	return expectOneRow(result, "product", id)
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		prod  model.Product
		owner model.AccountSummary
	)
	if err := row.Scan(
		&prod.ID, &prod.Title, &prod.Description, &prod.Category, &prod.Price,
		&prod.Image, &prod.PublishedAt, &prod.Likes, &prod.Active, &prod.OwnerID,
		&prod.CreatedAt, &prod.UpdatedAt,
		&owner.ID, &owner.Name, &owner.Email, &owner.Phone,
	); err != nil {
		return nil, err
	}
	prod.Owner = &owner
	return &prod, nil
}
