package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/repository"
)

var _ repository.StockLogRepository = (*StockLogRepo)(nil)

// StockLogRepo bitácora de stock (solo inserción).
type StockLogRepo struct {
	q Querier
}

// NewStockLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLogRepository(q Querier) *StockLogRepo {
	return &StockLogRepo{q: q}
}

// Create inserta una entrada en la bitácora.
func (r *StockLogRepo) Create(ctx context.Context, l *entity.StockLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_logs (id, product_id, type, quantity, reason, unit_cost, reference, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.ProductID, l.Type, l.Quantity, l.Reason, l.UnitCost, l.Reference, nullString(l.CreatedBy), l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock log: %w", err)
	}
	return nil
}

// List movimientos más recientes primero, con el total para paginar.
func (r *StockLogRepo) List(ctx context.Context, productID string, limit, offset int) ([]*entity.StockLog, int, error) {
	where := ``
	args := []any{}
	if productID != "" {
		where = ` WHERE product_id = $1`
		args = append(args, productID)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM stock_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock logs: %w", err)
	}

	pos := len(args) + 1
	query := fmt.Sprintf(`
		SELECT id, product_id, type, quantity, reason, unit_cost, reference, created_by, created_at
		FROM stock_logs%s
		ORDER BY created_at DESC, seq DESC
		LIMIT $%d OFFSET $%d`, where, pos, pos+1)
	rows, err := r.q.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock logs: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockLog
	for rows.Next() {
		var l entity.StockLog
		var createdBy *string
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Type, &l.Quantity, &l.Reason, &l.UnitCost,
			&l.Reference, &createdBy, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan stock log: %w", err)
		}
		l.CreatedBy = fromNull(createdBy)
		list = append(list, &l)
	}
	return list, total, rows.Err()
}
