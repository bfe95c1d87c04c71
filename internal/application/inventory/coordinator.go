package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/retail-pos/internal/application/dto"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/inventory"
	"github.com/jhoicas/retail-pos/pkg/logger"
	"github.com/shopspring/decimal"
)

// Motivos por defecto de la bitácora.
const (
	reasonStockIn   = "Reposición de stock"
	reasonStockOut  = "Reducción manual de stock"
	reasonSale      = "Venta"
	reasonAdjust    = "Ajuste de lote"
	migrationPrefix = "MIGRATION-"
)

// CoordinatorConfig opciones del coordinador.
type CoordinatorConfig struct {
	StrictFIFO bool
	Logger     *logger.Logger
	Observer   Observer
	Clock      func() time.Time
}

// StockCoordinator es el único punto de entrada de las operaciones que mueven stock
// (entrada, salida, venta, recepción de compra, ajuste). Cada operación corre en una sola
// transacción: stock agregado, lotes, costo y bitácora se confirman juntos o nada.
// La fila del producto se bloquea (SELECT FOR UPDATE) antes de validar la existencia disponible.
type StockCoordinator struct {
	txRunner TxRunner
	ledger   *BatchLedger
	costing  *CostingEngine
	consumer *FIFOConsumer
	observer Observer
	now      func() time.Time
}

// NewStockCoordinator construye el coordinador con su libro de lotes, motor de costeo y consumidor FIFO.
func NewStockCoordinator(txRunner TxRunner, cfg CoordinatorConfig) *StockCoordinator {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	policy := ShortfallLenient
	if cfg.StrictFIFO {
		policy = ShortfallStrict
	}
	costing := NewCostingEngine()
	return &StockCoordinator{
		txRunner: txRunner,
		ledger:   NewBatchLedger(costing, clock),
		costing:  costing,
		consumer: NewFIFOConsumer(costing, policy, cfg.Logger, cfg.Observer),
		observer: cfg.Observer,
		now:      clock,
	}
}

// Ledger expone el libro de lotes (consultas FIFO dentro de una tx del caller).
func (c *StockCoordinator) Ledger() *BatchLedger {
	return c.ledger
}

func (c *StockCoordinator) observe(op string, err error) {
	if c.observer != nil {
		c.observer.MutationCompleted(op, err)
	}
}

// lockProduct bloquea la fila del producto; ErrNotFound si no existe.
func lockProduct(ctx context.Context, repos Repos, productID string) (*entity.Product, error) {
	product, err := repos.Products.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	return product, nil
}

func requireStock(product *entity.Product, quantity int) error {
	if product.Stock < quantity {
		return fmt.Errorf("%w: producto %q disponible %d, solicitado %d",
			domain.ErrInsufficientStock, product.Name, product.Stock, quantity)
	}
	return nil
}

func (c *StockCoordinator) appendLog(ctx context.Context, repos Repos, l *entity.StockLog) error {
	l.ID = uuid.New().String()
	l.CreatedAt = c.now().UTC()
	return repos.StockLogs.Create(ctx, l)
}

func (c *StockCoordinator) response(ctx context.Context, repos Repos, productID string, log *entity.StockLog) (*dto.StockMutationResponse, error) {
	product, err := repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	return &dto.StockMutationResponse{
		ProductID: product.ID,
		Stock:     product.Stock,
		CostPrice: product.CostPrice,
		LogID:     log.ID,
		TotalCost: decimal.Zero,
	}, nil
}

// resolveUnitCost regla de costo por defecto: sin costo explícito la entrada conserva el costo vigente.
func resolveUnitCost(explicit *decimal.Decimal, product *entity.Product) decimal.Decimal {
	if explicit != nil {
		return *explicit
	}
	return product.CostPrice
}

// StockIn registra una entrada manual: crea un lote, suma stock y escribe la bitácora.
func (c *StockCoordinator) StockIn(ctx context.Context, actorID string, in dto.StockInRequest) (*dto.StockMutationResponse, error) {
	if err := dto.ValidateMutation(actorID, in); err != nil {
		return nil, err
	}
	var out *dto.StockMutationResponse
	err := c.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		product, err := lockProduct(ctx, repos, in.ProductID)
		if err != nil {
			return err
		}
		batch, err := c.ledger.AddBatch(ctx, repos, NewBatch{
			ProductID:   product.ID,
			Quantity:    in.Quantity,
			UnitCost:    resolveUnitCost(in.UnitCost, product),
			SupplierID:  in.SupplierID,
			BatchNumber: in.BatchNumber,
			ExpiresAt:   in.ExpiresAt,
		})
		if err != nil {
			return err
		}
		if err := repos.Products.AdjustStock(ctx, product.ID, in.Quantity); err != nil {
			return err
		}
		unitCost := batch.UnitCost
		log := &entity.StockLog{
			ProductID: product.ID,
			Type:      entity.StockLogIn,
			Quantity:  in.Quantity,
			Reason:    defaultString(in.Reason, reasonStockIn),
			UnitCost:  &unitCost,
			Reference: batch.ID,
			CreatedBy: actorID,
		}
		if err := c.appendLog(ctx, repos, log); err != nil {
			return err
		}
		out, err = c.response(ctx, repos, product.ID, log)
		if err != nil {
			return err
		}
		out.BatchID = batch.ID
		out.TotalCost = decimal.NewFromInt(int64(in.Quantity)).Mul(unitCost)
		return nil
	})
	c.observe(OpStockIn, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StockOut registra una salida manual. Igual que una venta, descuenta los lotes en orden FIFO
// para que el stock agregado no se separe del libro de lotes.
func (c *StockCoordinator) StockOut(ctx context.Context, actorID string, in dto.StockOutRequest) (*dto.StockMutationResponse, error) {
	if err := dto.ValidateMutation(actorID, in); err != nil {
		return nil, err
	}
	var out *dto.StockMutationResponse
	err := c.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		res, log, err := c.consume(ctx, repos, consumeInput{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Reason:    defaultString(in.Reason, reasonStockOut),
			ActorID:   actorID,
		})
		if err != nil {
			return err
		}
		out, err = c.response(ctx, repos, in.ProductID, log)
		if err != nil {
			return err
		}
		out.TotalCost = res.TotalCost
		out.Shortfall = res.Shortfall
		return nil
	})
	c.observe(OpStockOut, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaleLine consumo de una línea de venta dentro de la tx de la venta.
type SaleLine struct {
	ProductID string
	Quantity  int
	Reference string // ID de la venta
	ActorID   string
}

// ConsumeForSale descuenta stock para una venta en su propia transacción y devuelve el costo de lo vendido.
func (c *StockCoordinator) ConsumeForSale(ctx context.Context, productID string, quantity int) (decimal.Decimal, error) {
	var cogs decimal.Decimal
	err := c.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		var err error
		cogs, err = c.ConsumeForSaleInTx(ctx, repos, SaleLine{ProductID: productID, Quantity: quantity})
		return err
	})
	c.observe(OpSale, err)
	if err != nil {
		return decimal.Zero, err
	}
	return cogs, nil
}

// ConsumeForSaleInTx igual que ConsumeForSale pero con los repositorios de la tx del caller (creación de venta).
// Si devuelve error el caller debe abortar su transacción.
func (c *StockCoordinator) ConsumeForSaleInTx(ctx context.Context, repos Repos, line SaleLine) (decimal.Decimal, error) {
	if line.ProductID == "" || line.Quantity <= 0 {
		return decimal.Zero, fmt.Errorf("%w: producto y cantidad positiva requeridos", domain.ErrInvalidInput)
	}
	res, _, err := c.consume(ctx, repos, consumeInput{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Reason:    reasonSale,
		Reference: line.Reference,
		ActorID:   line.ActorID,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.TotalCost, nil
}

type consumeInput struct {
	ProductID string
	Quantity  int
	Reason    string
	Reference string
	ActorID   string
}

// consume: bloquea producto, valida stock, consume FIFO, resta stock y escribe la salida en la bitácora.
func (c *StockCoordinator) consume(ctx context.Context, repos Repos, in consumeInput) (ConsumptionResult, *entity.StockLog, error) {
	product, err := lockProduct(ctx, repos, in.ProductID)
	if err != nil {
		return ConsumptionResult{}, nil, err
	}
	if err := requireStock(product, in.Quantity); err != nil {
		return ConsumptionResult{}, nil, err
	}
	res, err := c.consumer.Consume(ctx, repos, product.ID, in.Quantity)
	if err != nil {
		return ConsumptionResult{}, nil, err
	}
	if err := repos.Products.AdjustStock(ctx, product.ID, -in.Quantity); err != nil {
		return ConsumptionResult{}, nil, err
	}
	unitCost := res.AverageUnitCost()
	log := &entity.StockLog{
		ProductID: product.ID,
		Type:      entity.StockLogOut,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
		UnitCost:  &unitCost,
		Reference: in.Reference,
		CreatedBy: in.ActorID,
	}
	if err := c.appendLog(ctx, repos, log); err != nil {
		return ConsumptionResult{}, nil, err
	}
	return res, log, nil
}

// ReceivePurchaseGoods registra la recepción (parcial o total) de una línea de orden de compra.
// El precio pactado se convierte en el costo del lote y el costo del producto pasa por el motor de costeo.
// Cuando todas las líneas quedan completas la orden pasa a RECEIVED.
func (c *StockCoordinator) ReceivePurchaseGoods(ctx context.Context, actorID string, in dto.ReceiveGoodsRequest) (*entity.PurchaseOrder, error) {
	if err := dto.ValidateMutation(actorID, in); err != nil {
		return nil, err
	}
	var order *entity.PurchaseOrder
	err := c.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		var err error
		order, err = c.ReceivePurchaseGoodsInTx(ctx, repos, actorID, in)
		return err
	})
	c.observe(OpReceive, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ReceivePurchaseGoodsInTx recepción con los repositorios de la tx del caller.
func (c *StockCoordinator) ReceivePurchaseGoodsInTx(ctx context.Context, repos Repos, actorID string, in dto.ReceiveGoodsRequest) (*entity.PurchaseOrder, error) {
	order, err := repos.PurchaseOrders.GetForUpdate(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, in.OrderID)
	}
	if !order.Status.Receivable() {
		return nil, fmt.Errorf("%w: solo órdenes PAID reciben mercancía (estado %s)", domain.ErrInvalidState, order.Status)
	}
	item, ok := order.Item(in.ItemID)
	if !ok {
		return nil, fmt.Errorf("%w: línea %s de la orden %s", domain.ErrNotFound, in.ItemID, order.ID)
	}
	if item.ReceivedQty+in.ReceivedQty > item.Quantity {
		return nil, fmt.Errorf("%w: no se pueden recibir %d unidades, quedan %d",
			domain.ErrInvalidState, in.ReceivedQty, item.Pending())
	}
	product, err := lockProduct(ctx, repos, item.ProductID)
	if err != nil {
		return nil, err
	}

	item.ReceivedQty += in.ReceivedQty
	if err := repos.PurchaseOrders.UpdateItemReceived(ctx, item.ID, item.ReceivedQty); err != nil {
		return nil, err
	}
	batch, err := c.ledger.AddBatch(ctx, repos, NewBatch{
		ProductID:       product.ID,
		Quantity:        in.ReceivedQty,
		UnitCost:        item.UnitPrice,
		PurchaseOrderID: order.ID,
		SupplierID:      order.SupplierID,
		BatchNumber:     in.BatchNumber,
		ExpiresAt:       in.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	if err := repos.Products.AdjustStock(ctx, product.ID, in.ReceivedQty); err != nil {
		return nil, err
	}
	unitCost := item.UnitPrice
	log := &entity.StockLog{
		ProductID: product.ID,
		Type:      entity.StockLogIn,
		Quantity:  in.ReceivedQty,
		Reason:    fmt.Sprintf("Orden de compra %s - mercancía recibida", order.ID),
		UnitCost:  &unitCost,
		Reference: batch.ID,
		CreatedBy: actorID,
	}
	if err := c.appendLog(ctx, repos, log); err != nil {
		return nil, err
	}
	if order.FullyReceived() {
		if err := repos.PurchaseOrders.UpdateStatus(ctx, order.ID, entity.PurchaseStatusReceived, c.now().UTC()); err != nil {
			return nil, err
		}
	}
	updated, err := repos.PurchaseOrders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, order.ID)
	}
	return updated, nil
}

// AdjustBatch corrige el remanente de un lote (daño, pérdida, conteo) y mueve el stock agregado en la misma medida.
func (c *StockCoordinator) AdjustBatch(ctx context.Context, actorID string, in dto.AdjustBatchRequest) (*entity.InventoryBatch, error) {
	if err := dto.ValidateMutation(actorID, in); err != nil {
		return nil, err
	}
	var batch *entity.InventoryBatch
	err := c.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		current, err := repos.Batches.GetByID(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: lote %s", domain.ErrNotFound, in.BatchID)
		}
		product, err := lockProduct(ctx, repos, current.ProductID)
		if err != nil {
			return err
		}
		var delta int
		batch, delta, err = c.ledger.AdjustBatch(ctx, repos, in.BatchID, in.NewRemaining)
		if err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}
		if product.Stock+delta < 0 {
			return fmt.Errorf("%w: el ajuste dejaría stock negativo (%d)", domain.ErrInvalidState, product.Stock+delta)
		}
		if err := repos.Products.AdjustStock(ctx, product.ID, delta); err != nil {
			return err
		}
		logType, qty := entity.StockLogIn, delta
		if delta < 0 {
			logType, qty = entity.StockLogOut, -delta
		}
		unitCost := batch.UnitCost
		return c.appendLog(ctx, repos, &entity.StockLog{
			ProductID: product.ID,
			Type:      logType,
			Quantity:  qty,
			Reason:    defaultString(in.Reason, reasonAdjust),
			UnitCost:  &unitCost,
			Reference: batch.ID,
			CreatedBy: actorID,
		})
	})
	c.observe(OpAdjustBatch, err)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// BackfillUntrackedStock crea un lote MIGRATION-<id> para el stock que no tiene respaldo en lotes
// (productos anteriores al costeo por lotes), al costo vigente. No cambia el stock agregado.
// Devuelve nil si el producto no tiene stock sin lote.
func (c *StockCoordinator) BackfillUntrackedStock(ctx context.Context, productID string) (*entity.InventoryBatch, error) {
	var batch *entity.InventoryBatch
	err := c.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		product, err := lockProduct(ctx, repos, productID)
		if err != nil {
			return err
		}
		live, err := c.ledger.BatchesWithRemaining(ctx, repos, product.ID)
		if err != nil {
			return err
		}
		untracked := product.Stock - inventory.RemainingQuantity(live)
		if untracked <= 0 {
			return nil
		}
		batch, err = c.ledger.AddBatch(ctx, repos, NewBatch{
			ProductID:   product.ID,
			Quantity:    untracked,
			UnitCost:    product.CostPrice,
			BatchNumber: migrationPrefix + product.ID,
		})
		return err
	})
	c.observe(OpBackfill, err)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
