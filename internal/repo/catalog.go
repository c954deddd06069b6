package repo

import (
	"context"
	"fmt"
)

// ListTopCategories returns categories without a parent, in display order.
func (r *Repository) ListTopCategories(ctx context.Context) ([]Category, error) {
	const q = `
SELECT id, name, parent_id, position
FROM catalog_categories
WHERE parent_id IS NULL
ORDER BY position, name;
`
	return r.scanCategories(ctx, q)
}

// ListSubCategories returns child categories of a parent, in display order.
func (r *Repository) ListSubCategories(ctx context.Context, parentID string) ([]Category, error) {
	const q = `
SELECT id, name, parent_id, position
FROM catalog_categories
WHERE parent_id = $1
ORDER BY position, name;
`
	return r.scanCategories(ctx, q, parentID)
}

func (r *Repository) scanCategories(ctx context.Context, q string, args ...any) ([]Category, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.Position); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

// ListProducts returns products under a category, in display order.
func (r *Repository) ListProducts(ctx context.Context, categoryID string) ([]Product, error) {
	const q = `
SELECT id, category_id, name, unit_price, unit, min_quantity, gst_category, image_url, position
FROM catalog_products
WHERE category_id = $1
ORDER BY position, name;
`
	rows, err := r.pool.Query(ctx, q, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.UnitPrice, &p.Unit, &p.MinQuantity, &p.GSTCategory, &p.ImageURL, &p.Position); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// ListAllProducts returns the full catalog, used by the index sync job.
func (r *Repository) ListAllProducts(ctx context.Context) ([]Product, error) {
	const q = `
SELECT id, category_id, name, unit_price, unit, min_quantity, gst_category, image_url, position
FROM catalog_products
ORDER BY position, name;
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.UnitPrice, &p.Unit, &p.MinQuantity, &p.GSTCategory, &p.ImageURL, &p.Position); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// GetProduct returns a product by id, or nil if absent.
func (r *Repository) GetProduct(ctx context.Context, id string) (*Product, error) {
	const q = `
SELECT id, category_id, name, unit_price, unit, min_quantity, gst_category, image_url, position
FROM catalog_products
WHERE id = $1
LIMIT 1;
`
	row := r.pool.QueryRow(ctx, q, id)
	var p Product
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.UnitPrice, &p.Unit, &p.MinQuantity, &p.GSTCategory, &p.ImageURL, &p.Position); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}
