package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/repository"
)

var (
	_ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)
	_ repository.SupplierRepository      = (*SupplierRepo)(nil)
)

const purchaseOrderColumns = `id, supplier_id, status, total_amount, notes, created_by,
	approved_at, paid_at, received_at, created_at, updated_at`

// PurchaseOrderRepo órdenes de compra y sus líneas sobre PostgreSQL.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

// Create inserta la orden y sus líneas.
func (r *PurchaseOrderRepo) Create(ctx context.Context, o *entity.PurchaseOrder) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_orders (`+purchaseOrderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.SupplierID, string(o.Status), o.TotalAmount, o.Notes, nullString(o.CreatedBy),
		o.ApprovedAt, o.PaidAt, o.ReceivedAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: orden de compra %s", domain.ErrDuplicate, o.ID)
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	for _, it := range o.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO purchase_items (id, purchase_order_id, product_id, quantity, received_qty, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, o.ID, it.ProductID, it.Quantity, it.ReceivedQty, it.UnitPrice, it.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("insert purchase item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la orden con sus líneas.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1`, id)
}

// GetForUpdate obtiene la orden bloqueando su fila. Las líneas solo se modifican con la orden bloqueada.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *PurchaseOrderRepo) get(ctx context.Context, query, id string) (*entity.PurchaseOrder, error) {
	var o entity.PurchaseOrder
	var status string
	var createdBy *string
	err := r.q.QueryRow(ctx, query, id).Scan(&o.ID, &o.SupplierID, &status, &o.TotalAmount, &o.Notes, &createdBy,
		&o.ApprovedAt, &o.PaidAt, &o.ReceivedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	o.Status = entity.PurchaseStatus(status)
	o.CreatedBy = fromNull(createdBy)

	rows, err := r.q.Query(ctx, `
		SELECT id, purchase_order_id, product_id, quantity, received_qty, unit_price, total_price
		FROM purchase_items WHERE purchase_order_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list purchase items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.ProductID, &it.Quantity, &it.ReceivedQty,
			&it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// UpdateStatus cambia el estado y sella la fecha del hito correspondiente.
func (r *PurchaseOrderRepo) UpdateStatus(ctx context.Context, id string, status entity.PurchaseStatus, at time.Time) error {
	query := `UPDATE purchase_orders SET status = $2, updated_at = $3`
	switch status {
	case entity.PurchaseStatusApproved:
		query += `, approved_at = $3`
	case entity.PurchaseStatusPaid:
		query += `, paid_at = $3`
	case entity.PurchaseStatusReceived:
		query += `, received_at = $3`
	}
	query += ` WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, id, string(status), at)
	if err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, id)
	}
	return nil
}

// UpdateItemReceived fija la cantidad recibida de una línea (CHECK received_qty <= quantity).
func (r *PurchaseOrderRepo) UpdateItemReceived(ctx context.Context, itemID string, receivedQty int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE purchase_items SET received_qty = $2 WHERE id = $1`, itemID, receivedQty)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: recibido %d en la línea %s", domain.ErrInvalidState, receivedQty, itemID)
		}
		return fmt.Errorf("update purchase item: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: línea de orden %s", domain.ErrNotFound, itemID)
	}
	return nil
}

// List cabeceras filtradas por estado y proveedor; los placeholders se numeran según los filtros presentes.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter repository.PurchaseOrderFilter, limit, offset int) ([]*entity.PurchaseOrder, int, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.SupplierID != "" {
		args = append(args, filter.SupplierID)
		conds = append(conds, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count purchase orders: %w", err)
	}

	pos := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM purchase_orders%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		purchaseOrderColumns, where, pos, pos+1)
	rows, err := r.q.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.PurchaseOrder
	for rows.Next() {
		var o entity.PurchaseOrder
		var status string
		var createdBy *string
		if err := rows.Scan(&o.ID, &o.SupplierID, &status, &o.TotalAmount, &o.Notes, &createdBy,
			&o.ApprovedAt, &o.PaidAt, &o.ReceivedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan purchase order: %w", err)
		}
		o.Status = entity.PurchaseStatus(status)
		o.CreatedBy = fromNull(createdBy)
		list = append(list, &o)
	}
	return list, total, rows.Err()
}

// StatusTotals cantidad y valor por estado.
func (r *PurchaseOrderRepo) StatusTotals(ctx context.Context) ([]repository.PurchaseStatusTotal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT status, count(*)::int, COALESCE(SUM(total_amount), 0)
		FROM purchase_orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("purchase order totals: %w", err)
	}
	defer rows.Close()
	var list []repository.PurchaseStatusTotal
	for rows.Next() {
		var t repository.PurchaseStatusTotal
		var status string
		if err := rows.Scan(&status, &t.Orders, &t.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan purchase order totals: %w", err)
		}
		t.Status = entity.PurchaseStatus(status)
		list = append(list, t)
	}
	return list, rows.Err()
}

// SupplierRepo proveedores sobre PostgreSQL.
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

const supplierColumns = `id, name, contact_name, email, phone, address, tax_id, notes, active, created_at, updated_at`

func scanSupplier(row pgx.Row) (*entity.Supplier, error) {
	var s entity.Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactName, &s.Email, &s.Phone, &s.Address, &s.TaxID, &s.Notes,
		&s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserta un proveedor.
func (r *SupplierRepo) Create(ctx context.Context, s *entity.Supplier) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO suppliers (id, name, contact_name, email, phone, address, tax_id, notes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.ContactName, s.Email, s.Phone, s.Address, s.TaxID, s.Notes, s.Active,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: proveedor %s", domain.ErrDuplicate, s.Name)
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// GetByID obtiene un proveedor por ID.
func (r *SupplierRepo) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	s, err := scanSupplier(r.q.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return s, nil
}

// List proveedores por nombre.
func (r *SupplierRepo) List(ctx context.Context, limit, offset int) ([]*entity.Supplier, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM suppliers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suppliers: %w", err)
	}
	rows, err := r.q.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()
	var list []*entity.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan supplier: %w", err)
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

// Update reemplaza los datos editables del proveedor.
func (r *SupplierRepo) Update(ctx context.Context, s *entity.Supplier) error {
	err := r.q.QueryRow(ctx, `
		UPDATE suppliers SET name = $2, contact_name = $3, email = $4, phone = $5, address = $6,
			tax_id = $7, notes = $8, active = $9, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.ContactName, s.Email, s.Phone, s.Address, s.TaxID, s.Notes, s.Active,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: proveedor %s", domain.ErrNotFound, s.ID)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: proveedor %s", domain.ErrDuplicate, s.Name)
		}
		return fmt.Errorf("update supplier: %w", err)
	}
	return nil
}

// Delete borra un proveedor sin órdenes; la FK de purchase_orders rechaza el resto.
func (r *SupplierRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: el proveedor %s tiene órdenes de compra", domain.ErrInvalidState, id)
		}
		return fmt.Errorf("delete supplier: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: proveedor %s", domain.ErrNotFound, id)
	}
	return nil
}
