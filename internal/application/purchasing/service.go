// Package purchasing implementa el ciclo de vida de las órdenes de compra a proveedores.
// La recepción de mercancía se delega al coordinador de stock.
package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/retail-pos/internal/application/dto"
	"github.com/jhoicas/retail-pos/internal/application/inventory"
	"github.com/jhoicas/retail-pos/internal/application/ports"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/repository"
	"github.com/jhoicas/retail-pos/pkg/logger"
)

const idempotencyScope = "purchasing.receive"

// GoodsReceiver registra la mercancía recibida (implementado por inventory.StockCoordinator).
type GoodsReceiver interface {
	ReceivePurchaseGoods(ctx context.Context, actorID string, in dto.ReceiveGoodsRequest) (*entity.PurchaseOrder, error)
}

// Service orquesta las órdenes de compra: DRAFT → APPROVED → PAID → RECEIVED → CLOSED, o CANCELLED.
type Service struct {
	txRunner    inventory.TxRunner
	receiver    GoodsReceiver
	idempotency ports.IdempotencyStore
	log         *logger.Logger
	now         func() time.Time
}

// NewService construye el servicio. idempotency puede ser nil (sin deduplicación de reintentos).
func NewService(txRunner inventory.TxRunner, receiver GoodsReceiver, idempotency ports.IdempotencyStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		txRunner:    txRunner,
		receiver:    receiver,
		idempotency: idempotency,
		log:         log.Named("purchasing"),
		now:         time.Now,
	}
}

// Create registra una orden en DRAFT. Proveedor y productos deben existir; los totales se calculan aquí.
func (s *Service) Create(ctx context.Context, actorID string, in dto.CreatePurchaseOrderRequest) (*entity.PurchaseOrder, error) {
	if err := dto.ValidateMutation(actorID, in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	order := &entity.PurchaseOrder{
		ID:          uuid.New().String(),
		SupplierID:  in.SupplierID,
		Status:      entity.PurchaseStatusDraft,
		TotalAmount: decimal.Zero,
		Notes:       in.Notes,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, it := range in.Items {
		total := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		order.Items = append(order.Items, entity.PurchaseItem{
			ID:              uuid.New().String(),
			PurchaseOrderID: order.ID,
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			TotalPrice:      total,
		})
		order.TotalAmount = order.TotalAmount.Add(total)
	}

	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		supplier, err := repos.Suppliers.GetByID(ctx, in.SupplierID)
		if err != nil {
			return err
		}
		if supplier == nil {
			return fmt.Errorf("%w: proveedor %s", domain.ErrNotFound, in.SupplierID)
		}
		if !supplier.Active {
			return fmt.Errorf("%w: proveedor %s inactivo", domain.ErrInvalidState, in.SupplierID)
		}
		for _, it := range order.Items {
			p, err := repos.Products.GetByID(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("%w: producto %s", domain.ErrNotFound, it.ProductID)
			}
		}
		return repos.PurchaseOrders.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", order.ID).Str("supplier_id", order.SupplierID).Msg("orden de compra creada")
	return order, nil
}

// GetByID devuelve la orden con sus líneas.
func (s *Service) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var order *entity.PurchaseOrder
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		var err error
		order, err = repos.PurchaseOrders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, id)
	}
	return order, nil
}

// OrderPage página de órdenes (solo cabeceras, sin líneas).
type OrderPage struct {
	Orders     []*entity.PurchaseOrder
	Pagination dto.PageResponse
}

// List órdenes más recientes primero, filtradas opcionalmente por estado y proveedor.
func (s *Service) List(ctx context.Context, in dto.ListPurchaseOrdersRequest) (*OrderPage, error) {
	in.DefaultPage()
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	filter := repository.PurchaseOrderFilter{Status: entity.PurchaseStatus(in.Status), SupplierID: in.SupplierID}
	var (
		orders []*entity.PurchaseOrder
		total  int
	)
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		var err error
		orders, total, err = repos.PurchaseOrders.List(ctx, filter, in.Limit, in.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &OrderPage{Orders: orders, Pagination: dto.NewPageResponse(in.PageRequest, total)}, nil
}

// Statistics conteo de órdenes por estado. Todos los estados aparecen, aunque sea con 0.
type Statistics struct {
	TotalOrders   int
	TotalValue    decimal.Decimal
	ByStatus      map[entity.PurchaseStatus]int
	ValueByStatus map[entity.PurchaseStatus]decimal.Decimal
}

var allStatuses = []entity.PurchaseStatus{
	entity.PurchaseStatusDraft,
	entity.PurchaseStatusApproved,
	entity.PurchaseStatusPaid,
	entity.PurchaseStatusReceived,
	entity.PurchaseStatusClosed,
	entity.PurchaseStatusCancelled,
}

// Statistics agrega las órdenes por estado. TotalValue excluye las canceladas.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	var totals []repository.PurchaseStatusTotal
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		var err error
		totals, err = repos.PurchaseOrders.StatusTotals(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := &Statistics{
		TotalValue:    decimal.Zero,
		ByStatus:      make(map[entity.PurchaseStatus]int, len(allStatuses)),
		ValueByStatus: make(map[entity.PurchaseStatus]decimal.Decimal, len(allStatuses)),
	}
	for _, st := range allStatuses {
		out.ByStatus[st] = 0
		out.ValueByStatus[st] = decimal.Zero
	}
	for _, t := range totals {
		out.ByStatus[t.Status] = t.Orders
		out.ValueByStatus[t.Status] = t.TotalAmount
		out.TotalOrders += t.Orders
		if t.Status != entity.PurchaseStatusCancelled {
			out.TotalValue = out.TotalValue.Add(t.TotalAmount)
		}
	}
	return out, nil
}

// Approve DRAFT → APPROVED.
func (s *Service) Approve(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.PurchaseStatusApproved)
}

// MarkPaid APPROVED → PAID. Solo las órdenes pagadas reciben mercancía.
func (s *Service) MarkPaid(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.PurchaseStatusPaid)
}

// Close RECEIVED → CLOSED.
func (s *Service) Close(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.PurchaseStatusClosed)
}

// Cancel anula la orden si todavía no se recibió.
func (s *Service) Cancel(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.PurchaseStatusCancelled)
}

func (s *Service) transition(ctx context.Context, id string, to entity.PurchaseStatus) (*entity.PurchaseOrder, error) {
	var order *entity.PurchaseOrder
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		current, err := repos.PurchaseOrders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, id)
		}
		if !current.Status.CanTransition(to) {
			return fmt.Errorf("%w: no se puede pasar de %s a %s", domain.ErrInvalidState, current.Status, to)
		}
		if err := repos.PurchaseOrders.UpdateStatus(ctx, id, to, s.now().UTC()); err != nil {
			return err
		}
		order, err = repos.PurchaseOrders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", id).Str("status", string(to)).Msg("orden de compra actualizada")
	return order, nil
}

// ReceiveGoods registra mercancía recibida de una línea. Con IdempotencyKey, un reintento con la misma
// llave devuelve ports.ErrIdempotencyConflict sin volver a sumar stock.
func (s *Service) ReceiveGoods(ctx context.Context, actorID string, in dto.ReceiveGoodsRequest) (*entity.PurchaseOrder, error) {
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
	order, err := s.receiver.ReceivePurchaseGoods(ctx, actorID, in)
	if err != nil {
		if reserved {
			if relErr := s.idempotency.Release(ctx, idempotencyScope, in.IdempotencyKey); relErr != nil {
				s.log.Warn().Err(relErr).Str("key", in.IdempotencyKey).Msg("no se pudo liberar la llave de idempotencia")
			}
		}
		return nil, err
	}
	s.log.Info().
		Str("order_id", order.ID).
		Str("item_id", in.ItemID).
		Int("received_qty", in.ReceivedQty).
		Str("status", string(order.Status)).
		Msg("mercancía recibida")
	return order, nil
}
