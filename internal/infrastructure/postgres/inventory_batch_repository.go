package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/repository"
)

var _ repository.InventoryBatchRepository = (*InventoryBatchRepo)(nil)

const batchColumns = `id, product_id, quantity_received, quantity_remaining, unit_cost, received_at,
	purchase_order_id, supplier_id, batch_number, expires_at`

// InventoryBatchRepo libro de lotes sobre PostgreSQL. La columna seq (BIGSERIAL) desempata lotes
// recibidos en el mismo instante: el orden FIFO es (received_at, seq).
type InventoryBatchRepo struct {
	q Querier
}

// NewInventoryBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryBatchRepository(q Querier) *InventoryBatchRepo {
	return &InventoryBatchRepo{q: q}
}

func scanBatch(row pgx.Row) (entity.InventoryBatch, error) {
	var b entity.InventoryBatch
	var poID, supplierID *string
	err := row.Scan(&b.ID, &b.ProductID, &b.QuantityReceived, &b.QuantityRemaining, &b.UnitCost, &b.ReceivedAt,
		&poID, &supplierID, &b.BatchNumber, &b.ExpiresAt)
	b.PurchaseOrderID = fromNull(poID)
	b.SupplierID = fromNull(supplierID)
	return b, err
}

// Create inserta un lote.
func (r *InventoryBatchRepo) Create(ctx context.Context, b *entity.InventoryBatch) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.ProductID, b.QuantityReceived, b.QuantityRemaining, b.UnitCost, b.ReceivedAt,
		nullString(b.PurchaseOrderID), nullString(b.SupplierID), b.BatchNumber, b.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, b.ID)
		}
		return fmt.Errorf("insert inventory batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *InventoryBatchRepo) GetByID(ctx context.Context, id string) (*entity.InventoryBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM inventory_batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory batch: %w", err)
	}
	return &b, nil
}

// ListLive lotes con remanente en orden FIFO. productID vacío lista todos los productos.
func (r *InventoryBatchRepo) ListLive(ctx context.Context, productID string) ([]entity.InventoryBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches WHERE quantity_remaining > 0`
	args := []any{}
	if productID != "" {
		query += ` AND product_id = $1`
		args = append(args, productID)
	}
	query += ` ORDER BY received_at ASC, seq ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list live batches: %w", err)
	}
	defer rows.Close()
	list := make([]entity.InventoryBatch, 0)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// UpdateRemaining fija el remanente. El CHECK de la tabla garantiza 0 <= remanente <= recibido.
func (r *InventoryBatchRepo) UpdateRemaining(ctx context.Context, id string, remaining int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE inventory_batches SET quantity_remaining = $2 WHERE id = $1`, id, remaining)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: remanente %d del lote %s", domain.ErrInvalidState, remaining, id)
		}
		return fmt.Errorf("update batch remaining: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: lote %s", domain.ErrNotFound, id)
	}
	return nil
}
