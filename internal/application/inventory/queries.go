package inventory

import (
	"context"
	"fmt"
	"math"

	"github.com/jhoicas/retail-pos/internal/application/dto"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/inventory"
)

// InventoryQueries consultas de solo lectura sobre el inventario: valoración, bitácora y stock bajo.
// Usa los repositorios del pool (sin transacción).
type InventoryQueries struct {
	repos            Repos
	defaultThreshold int
}

// NewInventoryQueries construye el servicio de consultas. defaultThreshold se usa cuando no se indica umbral.
func NewInventoryQueries(repos Repos, defaultThreshold int) *InventoryQueries {
	return &InventoryQueries{repos: repos, defaultThreshold: defaultThreshold}
}

// Valuation valora los lotes vivos a su costo de adquisición. productID vacío valora todo el inventario.
// No modifica nada: dos llamadas seguidas sin mutaciones devuelven lo mismo.
func (q *InventoryQueries) Valuation(ctx context.Context, productID string) (*dto.ValuationResponse, error) {
	batches, err := q.repos.Batches.ListLive(ctx, productID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	for _, b := range batches {
		if _, ok := names[b.ProductID]; ok {
			continue
		}
		p, err := q.repos.Products.GetByID(ctx, b.ProductID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			names[b.ProductID] = p.Name
		} else {
			names[b.ProductID] = ""
		}
	}

	v := inventory.Valuate(batches, names)
	out := &dto.ValuationResponse{
		TotalValue:    v.TotalValue,
		TotalQuantity: v.TotalQuantity,
		PerBatch:      make([]dto.BatchValuationDTO, 0, len(v.PerBatch)),
	}
	for _, b := range v.PerBatch {
		out.PerBatch = append(out.PerBatch, dto.BatchValuationDTO{
			BatchID:     b.BatchID,
			ProductID:   b.ProductID,
			ProductName: b.ProductName,
			Quantity:    b.Quantity,
			UnitCost:    b.UnitCost,
			TotalValue:  b.TotalValue,
			ReceivedAt:  b.ReceivedAt,
		})
	}
	return out, nil
}

// StockLogs lista la bitácora, más reciente primero. productID vacío lista todos los productos.
func (q *InventoryQueries) StockLogs(ctx context.Context, productID string, page dto.PageRequest) (*dto.StockLogPage, error) {
	page.DefaultPage()
	if err := dto.Validate(page); err != nil {
		return nil, err
	}
	logs, total, err := q.repos.StockLogs.List(ctx, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return &dto.StockLogPage{
		Logs:       toStockLogDTOs(logs),
		Pagination: dto.NewPageResponse(page, total),
	}, nil
}

// StockHistory historial de movimientos de un producto junto con su stock actual.
func (q *InventoryQueries) StockHistory(ctx context.Context, productID string, page dto.PageRequest) (*dto.StockHistoryResponse, error) {
	page.DefaultPage()
	if err := dto.Validate(page); err != nil {
		return nil, err
	}
	product, err := q.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	logs, total, err := q.repos.StockLogs.List(ctx, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return &dto.StockHistoryResponse{
		ProductID:    product.ID,
		ProductName:  product.Name,
		SKU:          product.SKU,
		CurrentStock: product.Stock,
		History:      toStockLogDTOs(logs),
		Pagination:   dto.NewPageResponse(page, total),
	}, nil
}

// resolveThreshold nil usa el umbral configurado; 0 es un umbral válido (solo productos agotados).
func (q *InventoryQueries) resolveThreshold(threshold *int) (int, error) {
	if threshold == nil {
		return q.defaultThreshold, nil
	}
	if *threshold < 0 {
		return 0, fmt.Errorf("%w: umbral negativo %d", domain.ErrInvalidInput, *threshold)
	}
	return *threshold, nil
}

// LowStock productos con stock <= threshold, clasificados por nivel de alerta.
// critical: sin stock; high: hasta la mitad del umbral (redondeo hacia arriba); medium: el resto.
func (q *InventoryQueries) LowStock(ctx context.Context, threshold *int, page dto.PageRequest) (*dto.LowStockResponse, error) {
	th, err := q.resolveThreshold(threshold)
	if err != nil {
		return nil, err
	}
	page.DefaultPage()
	if err := dto.Validate(page); err != nil {
		return nil, err
	}
	products, total, err := q.repos.Products.ListBelowThreshold(ctx, th, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	out := &dto.LowStockResponse{
		Products:   make([]dto.LowStockItemDTO, 0, len(products)),
		Threshold:  th,
		Pagination: dto.NewPageResponse(page, total),
	}
	for _, p := range products {
		level := AlertLevel(p.Stock, th)
		switch level {
		case dto.AlertCritical:
			out.CriticalCount++
		case dto.AlertHigh:
			out.HighCount++
		default:
			out.MediumCount++
		}
		out.Products = append(out.Products, dto.LowStockItemDTO{
			ProductID:       p.ID,
			Name:            p.Name,
			SKU:             p.SKU,
			Stock:           p.Stock,
			ReorderLevel:    p.ReorderLevel,
			CostPrice:       p.CostPrice,
			AlertLevel:      level,
			StockPercentage: percentage(p.Stock, th),
		})
	}
	return out, nil
}

// Summary resumen del catálogo: agotados, stock bajo (0 < stock <= umbral) y normal, con su porcentaje.
func (q *InventoryQueries) Summary(ctx context.Context, threshold *int) (*dto.InventorySummaryResponse, error) {
	th, err := q.resolveThreshold(threshold)
	if err != nil {
		return nil, err
	}
	s, err := q.repos.Products.StockSummary(ctx, th)
	if err != nil {
		return nil, err
	}
	return &dto.InventorySummaryResponse{
		TotalProducts: s.TotalProducts,
		TotalStock:    s.TotalStock,
		OutOfStock:    s.OutOfStock,
		LowStock:      s.LowStock,
		NormalStock:   s.NormalStock,
		Threshold:     th,
		Health: dto.StockHealth{
			OutOfStock:  percentage(s.OutOfStock, s.TotalProducts),
			LowStock:    percentage(s.LowStock, s.TotalProducts),
			NormalStock: percentage(s.NormalStock, s.TotalProducts),
		},
	}, nil
}

// AlertLevel clasifica un nivel de stock respecto al umbral.
func AlertLevel(stock, threshold int) string {
	switch {
	case stock <= 0:
		return dto.AlertCritical
	case stock <= (threshold+1)/2:
		return dto.AlertHigh
	default:
		return dto.AlertMedium
	}
}

func percentage(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func toStockLogDTOs(logs []*entity.StockLog) []dto.StockLogDTO {
	out := make([]dto.StockLogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.StockLogDTO{
			ID:        l.ID,
			ProductID: l.ProductID,
			Type:      l.Type,
			Quantity:  l.Quantity,
			Reason:    l.Reason,
			UnitCost:  l.UnitCost,
			Reference: l.Reference,
			CreatedBy: l.CreatedBy,
			CreatedAt: l.CreatedAt,
		})
	}
	return out
}
