// Package sales registra ventas de mostrador. Cada venta descuenta stock por FIFO en la misma
// transacción en que se guarda, y cada línea queda con su costo real.
package sales

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/retail-pos/internal/application/dto"
	"github.com/jhoicas/retail-pos/internal/application/inventory"
	"github.com/jhoicas/retail-pos/internal/application/ports"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/pkg/logger"
)

const idempotencyScope = "sales.create"

// StockConsumer descuenta stock de una línea de venta dentro de la tx del caller y devuelve su costo FIFO.
type StockConsumer interface {
	ConsumeForSaleInTx(ctx context.Context, repos inventory.Repos, line inventory.SaleLine) (decimal.Decimal, error)
}

// Service caso de uso de ventas.
type Service struct {
	txRunner    inventory.TxRunner
	stock       StockConsumer
	idempotency ports.IdempotencyStore
	observer    inventory.Observer
	log         *logger.Logger
	now         func() time.Time
}

// NewService construye el servicio de ventas. idempotency y observer pueden ser nil.
func NewService(txRunner inventory.TxRunner, stock StockConsumer, idempotency ports.IdempotencyStore, observer inventory.Observer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		txRunner:    txRunner,
		stock:       stock,
		idempotency: idempotency,
		observer:    observer,
		log:         log.Named("sales"),
		now:         time.Now,
	}
}

// CreateSale registra la venta. El precio unitario sale del producto; total = subtotal + impuesto - descuento.
// Los productos se bloquean en orden de ID para que dos ventas con los mismos productos no se bloqueen mutuamente.
func (s *Service) CreateSale(ctx context.Context, actorID string, in dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	if err := dto.ValidateMutation(actorID, in); err != nil {
		return nil, err
	}
	reserved := false
	if s.idempotency != nil && in.IdempotencyKey != "" {
		if err := s.idempotency.Reserve(ctx, idempotencyScope, in.IdempotencyKey); err != nil {
			return nil, err
		}
		reserved = true
	}

	var sale *entity.Sale
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		var err error
		sale, err = s.createInTx(ctx, repos, actorID, in)
		return err
	})
	if s.observer != nil {
		s.observer.MutationCompleted(inventory.OpSale, err)
	}
	if err != nil {
		if reserved {
			if relErr := s.idempotency.Release(ctx, idempotencyScope, in.IdempotencyKey); relErr != nil {
				s.log.Warn().Err(relErr).Str("key", in.IdempotencyKey).Msg("no se pudo liberar la llave de idempotencia")
			}
		}
		return nil, err
	}
	s.log.Info().
		Str("sale_id", sale.ID).
		Str("invoice", sale.InvoiceNumber).
		Str("total", sale.TotalAmount.String()).
		Int("items", len(sale.Items)).
		Msg("venta registrada")
	return toResponse(sale, nil), nil
}

func (s *Service) createInTx(ctx context.Context, repos inventory.Repos, actorID string, in dto.CreateSaleRequest) (*entity.Sale, error) {
	requested := make(map[string]int, len(in.Items))
	for _, it := range in.Items {
		requested[it.ProductID] += it.Quantity
	}
	ids := make([]string, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	products := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		p, err := repos.Products.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
		}
		if p.Stock < requested[id] {
			return nil, fmt.Errorf("%w: producto %q disponible %d, solicitado %d",
				domain.ErrInsufficientStock, p.Name, p.Stock, requested[id])
		}
		products[id] = p
	}

	now := s.now().UTC()
	sale := &entity.Sale{
		ID:             uuid.New().String(),
		InvoiceNumber:  invoiceNumber(now),
		CustomerName:   in.CustomerName,
		CustomerPhone:  in.CustomerPhone,
		Subtotal:       decimal.Zero,
		TaxAmount:      in.TaxAmount,
		DiscountAmount: in.DiscountAmount,
		PaymentMethod:  in.PaymentMethod,
		SoldBy:         actorID,
		CreatedAt:      now,
	}
	for _, it := range in.Items {
		price := products[it.ProductID].Price
		sale.Items = append(sale.Items, entity.SaleItem{
			ID:         uuid.New().String(),
			SaleID:     sale.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  price,
			TotalPrice: price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
		sale.Subtotal = sale.Subtotal.Add(sale.Items[len(sale.Items)-1].TotalPrice)
	}
	sale.TotalAmount = sale.Subtotal.Add(sale.TaxAmount).Sub(sale.DiscountAmount)
	if sale.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: el descuento supera el total de la venta", domain.ErrInvalidInput)
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		cogs, err := s.stock.ConsumeForSaleInTx(ctx, repos, inventory.SaleLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Reference: sale.ID,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, err
		}
		item.TotalCost = &cogs
	}
	if err := repos.Sales.Create(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// GetSale devuelve la venta con costo y margen por línea. Las líneas anteriores al costeo por lotes
// (sin TotalCost) se costean con el CostPrice actual del producto.
func (s *Service) GetSale(ctx context.Context, id string) (*dto.SaleResponse, error) {
	var (
		sale     *entity.Sale
		fallback = map[string]decimal.Decimal{}
	)
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		var err error
		sale, err = repos.Sales.GetByID(ctx, id)
		if err != nil || sale == nil {
			return err
		}
		for _, it := range sale.Items {
			if it.TotalCost != nil {
				continue
			}
			p, err := repos.Products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p != nil {
				fallback[it.ProductID] = p.CostPrice
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, id)
	}
	return toResponse(sale, fallback), nil
}

func toResponse(sale *entity.Sale, fallback map[string]decimal.Decimal) *dto.SaleResponse {
	out := &dto.SaleResponse{
		ID:             sale.ID,
		InvoiceNumber:  sale.InvoiceNumber,
		Subtotal:       sale.Subtotal,
		TaxAmount:      sale.TaxAmount,
		DiscountAmount: sale.DiscountAmount,
		TotalAmount:    sale.TotalAmount,
		TotalCost:      decimal.Zero,
		PaymentMethod:  sale.PaymentMethod,
		Items:          make([]dto.SaleItemResponse, 0, len(sale.Items)),
	}
	for i := range sale.Items {
		it := &sale.Items[i]
		cost := it.CostOfGoods(fallback[it.ProductID])
		out.TotalCost = out.TotalCost.Add(cost)
		out.Items = append(out.Items, dto.SaleItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
			TotalCost:   cost,
			GrossProfit: it.GrossProfit(fallback[it.ProductID]),
		})
	}
	return out
}

// invoiceNumber VTA-AAAAMMDD-XXXXXXXX.
func invoiceNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("VTA-%s-%s", at.Format("20060102"), suffix)
}
