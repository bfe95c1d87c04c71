package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, name, sku, category_id, price, cost_price, stock, reorder_level, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	var categoryID *string
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &categoryID, &p.Price, &p.CostPrice, &p.Stock,
		&p.ReorderLevel, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CategoryID = fromNull(categoryID)
	return &p, nil
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		product.ID, product.Name, product.SKU, nullString(product.CategoryID), product.Price,
		product.CostPrice, product.Stock, product.ReorderLevel,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: producto %s", domain.ErrDuplicate, product.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetForUpdate obtiene el producto bloqueando la fila hasta el fin de la transacción.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

// AdjustStock suma delta al stock. El CHECK (stock >= 0) de la tabla impide dejarlo negativo.
func (r *ProductRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`, id, delta)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: producto %s, variación %d", domain.ErrInsufficientStock, id, delta)
		}
		return fmt.Errorf("adjust product stock: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return nil
}

// UpdateCost actualiza solo el costo del producto (usado por el motor de costeo).
func (r *ProductRepo) UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx, `UPDATE products SET cost_price = $2, updated_at = now() WHERE id = $1`, id, cost)
	if err != nil {
		return fmt.Errorf("update product cost: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return nil
}

// ListBelowThreshold productos con stock <= threshold, del menor stock al mayor.
func (r *ProductRepo) ListBelowThreshold(ctx context.Context, threshold, limit, offset int) ([]*entity.Product, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM products WHERE stock <= $1`, threshold).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count low stock: %w", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE stock <= $1
		ORDER BY stock ASC, name ASC
		LIMIT $2 OFFSET $3`, threshold, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// ListUntracked productos con stock sin respaldo en lotes (datos anteriores al costeo por lotes).
func (r *ProductRepo) ListUntracked(ctx context.Context) ([]repository.UntrackedStock, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.stock, COALESCE(SUM(b.quantity_remaining), 0)::int AS tracked
		FROM products p
		LEFT JOIN inventory_batches b ON b.product_id = p.id
		GROUP BY p.id, p.stock
		HAVING p.stock > COALESCE(SUM(b.quantity_remaining), 0)
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("list untracked stock: %w", err)
	}
	defer rows.Close()
	var list []repository.UntrackedStock
	for rows.Next() {
		var u repository.UntrackedStock
		if err := rows.Scan(&u.ProductID, &u.Stock, &u.Tracked); err != nil {
			return nil, fmt.Errorf("scan untracked stock: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// StockSummary conteos por franja en una sola pasada sobre products.
func (r *ProductRepo) StockSummary(ctx context.Context, threshold int) (repository.StockSummary, error) {
	var out repository.StockSummary
	err := r.q.QueryRow(ctx, `
		SELECT count(*)::int,
			COALESCE(SUM(stock), 0)::int,
			count(*) FILTER (WHERE stock <= 0)::int,
			count(*) FILTER (WHERE stock > 0 AND stock <= $1)::int,
			count(*) FILTER (WHERE stock > $1)::int
		FROM products`, threshold,
	).Scan(&out.TotalProducts, &out.TotalStock, &out.OutOfStock, &out.LowStock, &out.NormalStock)
	if err != nil {
		return repository.StockSummary{}, fmt.Errorf("stock summary: %w", err)
	}
	return out, nil
}
