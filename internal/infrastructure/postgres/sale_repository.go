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

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo ventas y sus líneas sobre PostgreSQL.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create inserta la cabecera y las líneas. Debe correr dentro de una tx para que sea atómico.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales (id, invoice_number, customer_name, customer_phone, subtotal, tax_amount,
			discount_amount, total_amount, payment_method, sold_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.InvoiceNumber, s.CustomerName, s.CustomerPhone, s.Subtotal, s.TaxAmount,
		s.DiscountAmount, s.TotalAmount, s.PaymentMethod, nullString(s.SoldBy), s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, s.InvoiceNumber)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	for _, it := range s.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, total_price, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, s.ID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice, it.TotalCost,
		)
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la venta con sus líneas.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	var s entity.Sale
	var soldBy *string
	err := r.q.QueryRow(ctx, `
		SELECT id, invoice_number, customer_name, customer_phone, subtotal, tax_amount,
			discount_amount, total_amount, payment_method, sold_by, created_at
		FROM sales WHERE id = $1`, id,
	).Scan(&s.ID, &s.InvoiceNumber, &s.CustomerName, &s.CustomerPhone, &s.Subtotal, &s.TaxAmount,
		&s.DiscountAmount, &s.TotalAmount, &s.PaymentMethod, &soldBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.SoldBy = fromNull(soldBy)

	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, product_id, quantity, unit_price, total_price, total_cost
		FROM sale_items WHERE sale_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.TotalCost); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		s.Items = append(s.Items, it)
	}
	return &s, rows.Err()
}
