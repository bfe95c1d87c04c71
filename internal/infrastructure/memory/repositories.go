package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.ProductRepository        = (*productRepo)(nil)
	_ repository.InventoryBatchRepository = (*batchRepo)(nil)
	_ repository.StockLogRepository       = (*stockLogRepo)(nil)
	_ repository.SaleRepository           = (*saleRepo)(nil)
	_ repository.PurchaseOrderRepository  = (*purchaseOrderRepo)(nil)
	_ repository.SupplierRepository       = (*supplierRepo)(nil)
)

type productRepo struct{ v *view }

func (r *productRepo) Create(ctx context.Context, p *entity.Product) error {
	st, done := r.v.begin()
	defer done()
	if _, ok := st.products[p.ID]; ok {
		return fmt.Errorf("%w: producto %s", domain.ErrDuplicate, p.ID)
	}
	for _, existing := range st.products {
		if p.SKU != "" && existing.SKU == p.SKU {
			return fmt.Errorf("%w: SKU %s", domain.ErrDuplicate, p.SKU)
		}
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	st.products[p.ID] = *p
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	st, done := r.v.begin()
	defer done()
	p, ok := st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// GetForUpdate no bloquea nada extra: la transacción ya es exclusiva.
func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	st, done := r.v.begin()
	defer done()
	if err := r.v.fault(OpProductAdjustStock); err != nil {
		return err
	}
	p, ok := st.products[id]
	if !ok {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	if p.Stock+delta < 0 {
		return fmt.Errorf("%w: stock %d, variación %d", domain.ErrInsufficientStock, p.Stock, delta)
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	st.products[id] = p
	return nil
}

func (r *productRepo) UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error {
	st, done := r.v.begin()
	defer done()
	if err := r.v.fault(OpProductUpdateCost); err != nil {
		return err
	}
	p, ok := st.products[id]
	if !ok {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	p.CostPrice = cost
	p.UpdatedAt = time.Now().UTC()
	st.products[id] = p
	return nil
}

func (r *productRepo) ListBelowThreshold(ctx context.Context, threshold, limit, offset int) ([]*entity.Product, int, error) {
	st, done := r.v.begin()
	defer done()
	var matched []entity.Product
	for _, p := range st.products {
		if p.Stock <= threshold {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Stock != matched[j].Stock {
			return matched[i].Stock < matched[j].Stock
		}
		return matched[i].Name < matched[j].Name
	})
	total := len(matched)
	lo, hi := pageBounds(total, limit, offset)
	out := make([]*entity.Product, 0, hi-lo)
	for i := lo; i < hi; i++ {
		p := matched[i]
		out = append(out, &p)
	}
	return out, total, nil
}

func (r *productRepo) ListUntracked(ctx context.Context) ([]repository.UntrackedStock, error) {
	st, done := r.v.begin()
	defer done()
	tracked := make(map[string]int)
	for _, b := range st.batches {
		tracked[b.ProductID] += b.QuantityRemaining
	}
	var out []repository.UntrackedStock
	for _, p := range st.products {
		if p.Stock > tracked[p.ID] {
			out = append(out, repository.UntrackedStock{ProductID: p.ID, Stock: p.Stock, Tracked: tracked[p.ID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *productRepo) StockSummary(ctx context.Context, threshold int) (repository.StockSummary, error) {
	st, done := r.v.begin()
	defer done()
	var out repository.StockSummary
	for _, p := range st.products {
		out.TotalProducts++
		out.TotalStock += p.Stock
		switch {
		case p.Stock <= 0:
			out.OutOfStock++
		case p.Stock <= threshold:
			out.LowStock++
		default:
			out.NormalStock++
		}
	}
	return out, nil
}

type batchRepo struct{ v *view }

func (r *batchRepo) Create(ctx context.Context, b *entity.InventoryBatch) error {
	st, done := r.v.begin()
	defer done()
	if err := r.v.fault(OpBatchCreate); err != nil {
		return err
	}
	for _, existing := range st.batches {
		if existing.ID == b.ID {
			return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, b.ID)
		}
	}
	if _, ok := st.products[b.ProductID]; !ok {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, b.ProductID)
	}
	st.batches = append(st.batches, *b)
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, id string) (*entity.InventoryBatch, error) {
	st, done := r.v.begin()
	defer done()
	for _, b := range st.batches {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, nil
}

func (r *batchRepo) ListLive(ctx context.Context, productID string) ([]entity.InventoryBatch, error) {
	st, done := r.v.begin()
	defer done()
	out := make([]entity.InventoryBatch, 0)
	for _, b := range st.batches {
		if b.QuantityRemaining > 0 && (productID == "" || b.ProductID == productID) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

func (r *batchRepo) UpdateRemaining(ctx context.Context, id string, remaining int) error {
	st, done := r.v.begin()
	defer done()
	if err := r.v.fault(OpBatchUpdateRemaining); err != nil {
		return err
	}
	for i := range st.batches {
		if st.batches[i].ID != id {
			continue
		}
		if remaining < 0 || remaining > st.batches[i].QuantityReceived {
			return fmt.Errorf("%w: remanente %d fuera de [0, %d]", domain.ErrInvalidState, remaining, st.batches[i].QuantityReceived)
		}
		st.batches[i].QuantityRemaining = remaining
		return nil
	}
	return fmt.Errorf("%w: lote %s", domain.ErrNotFound, id)
}

type stockLogRepo struct{ v *view }

func (r *stockLogRepo) Create(ctx context.Context, l *entity.StockLog) error {
	st, done := r.v.begin()
	defer done()
	if err := r.v.fault(OpStockLogCreate); err != nil {
		return err
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: cantidad de bitácora %d", domain.ErrInvalidInput, l.Quantity)
	}
	st.logs = append(st.logs, *l)
	return nil
}

func (r *stockLogRepo) List(ctx context.Context, productID string, limit, offset int) ([]*entity.StockLog, int, error) {
	st, done := r.v.begin()
	defer done()
	var matched []entity.StockLog
	for i := len(st.logs) - 1; i >= 0; i-- {
		if productID == "" || st.logs[i].ProductID == productID {
			matched = append(matched, st.logs[i])
		}
	}
	total := len(matched)
	lo, hi := pageBounds(total, limit, offset)
	out := make([]*entity.StockLog, 0, hi-lo)
	for i := lo; i < hi; i++ {
		l := matched[i]
		out = append(out, &l)
	}
	return out, total, nil
}

type saleRepo struct{ v *view }

func (r *saleRepo) Create(ctx context.Context, s *entity.Sale) error {
	st, done := r.v.begin()
	defer done()
	if err := r.v.fault(OpSaleCreate); err != nil {
		return err
	}
	if _, ok := st.sales[s.ID]; ok {
		return fmt.Errorf("%w: venta %s", domain.ErrDuplicate, s.ID)
	}
	for _, existing := range st.sales {
		if existing.InvoiceNumber == s.InvoiceNumber {
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, s.InvoiceNumber)
		}
	}
	st.sales[s.ID] = cloneSale(*s)
	return nil
}

func (r *saleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	st, done := r.v.begin()
	defer done()
	s, ok := st.sales[id]
	if !ok {
		return nil, nil
	}
	s = cloneSale(s)
	return &s, nil
}

type purchaseOrderRepo struct{ v *view }

func (r *purchaseOrderRepo) Create(ctx context.Context, o *entity.PurchaseOrder) error {
	st, done := r.v.begin()
	defer done()
	if _, ok := st.orders[o.ID]; ok {
		return fmt.Errorf("%w: orden de compra %s", domain.ErrDuplicate, o.ID)
	}
	st.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *purchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	st, done := r.v.begin()
	defer done()
	o, ok := st.orders[id]
	if !ok {
		return nil, nil
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *purchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.GetByID(ctx, id)
}

func (r *purchaseOrderRepo) UpdateStatus(ctx context.Context, id string, status entity.PurchaseStatus, at time.Time) error {
	st, done := r.v.begin()
	defer done()
	if err := r.v.fault(OpOrderUpdateStatus); err != nil {
		return err
	}
	o, ok := st.orders[id]
	if !ok {
		return fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, id)
	}
	o.Status = status
	o.UpdatedAt = at
	switch status {
	case entity.PurchaseStatusApproved:
		o.ApprovedAt = &at
	case entity.PurchaseStatusPaid:
		o.PaidAt = &at
	case entity.PurchaseStatusReceived:
		o.ReceivedAt = &at
	}
	st.orders[id] = o
	return nil
}

func (r *purchaseOrderRepo) UpdateItemReceived(ctx context.Context, itemID string, receivedQty int) error {
	st, done := r.v.begin()
	defer done()
	for id, o := range st.orders {
		for i := range o.Items {
			if o.Items[i].ID != itemID {
				continue
			}
			if receivedQty < 0 || receivedQty > o.Items[i].Quantity {
				return fmt.Errorf("%w: recibido %d de %d", domain.ErrInvalidState, receivedQty, o.Items[i].Quantity)
			}
			o.Items[i].ReceivedQty = receivedQty
			st.orders[id] = o
			return nil
		}
	}
	return fmt.Errorf("%w: línea de orden %s", domain.ErrNotFound, itemID)
}

func (r *purchaseOrderRepo) List(ctx context.Context, filter repository.PurchaseOrderFilter, limit, offset int) ([]*entity.PurchaseOrder, int, error) {
	st, done := r.v.begin()
	defer done()
	var matched []entity.PurchaseOrder
	for _, o := range st.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.SupplierID != "" && o.SupplierID != filter.SupplierID {
			continue
		}
		o.Items = nil
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	lo, hi := pageBounds(total, limit, offset)
	out := make([]*entity.PurchaseOrder, 0, hi-lo)
	for i := lo; i < hi; i++ {
		o := matched[i]
		out = append(out, &o)
	}
	return out, total, nil
}

func (r *purchaseOrderRepo) StatusTotals(ctx context.Context) ([]repository.PurchaseStatusTotal, error) {
	st, done := r.v.begin()
	defer done()
	byStatus := make(map[entity.PurchaseStatus]*repository.PurchaseStatusTotal)
	for _, o := range st.orders {
		t, ok := byStatus[o.Status]
		if !ok {
			t = &repository.PurchaseStatusTotal{Status: o.Status, TotalAmount: decimal.Zero}
			byStatus[o.Status] = t
		}
		t.Orders++
		t.TotalAmount = t.TotalAmount.Add(o.TotalAmount)
	}
	out := make([]repository.PurchaseStatusTotal, 0, len(byStatus))
	for _, t := range byStatus {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

type supplierRepo struct{ v *view }

func (r *supplierRepo) Create(ctx context.Context, s *entity.Supplier) error {
	st, done := r.v.begin()
	defer done()
	if _, ok := st.suppliers[s.ID]; ok {
		return fmt.Errorf("%w: proveedor %s", domain.ErrDuplicate, s.ID)
	}
	if err := uniqueSupplierName(st, s); err != nil {
		return err
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	st.suppliers[s.ID] = *s
	return nil
}

func (r *supplierRepo) List(ctx context.Context, limit, offset int) ([]*entity.Supplier, int, error) {
	st, done := r.v.begin()
	defer done()
	all := make([]entity.Supplier, 0, len(st.suppliers))
	for _, s := range st.suppliers {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	lo, hi := pageBounds(total, limit, offset)
	out := make([]*entity.Supplier, 0, hi-lo)
	for i := lo; i < hi; i++ {
		s := all[i]
		out = append(out, &s)
	}
	return out, total, nil
}

func (r *supplierRepo) Update(ctx context.Context, s *entity.Supplier) error {
	st, done := r.v.begin()
	defer done()
	current, ok := st.suppliers[s.ID]
	if !ok {
		return fmt.Errorf("%w: proveedor %s", domain.ErrNotFound, s.ID)
	}
	if err := uniqueSupplierName(st, s); err != nil {
		return err
	}
	s.CreatedAt = current.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	st.suppliers[s.ID] = *s
	return nil
}

// Delete falla con ErrInvalidState si alguna orden referencia al proveedor, igual que la FK en PostgreSQL.
func (r *supplierRepo) Delete(ctx context.Context, id string) error {
	st, done := r.v.begin()
	defer done()
	if _, ok := st.suppliers[id]; !ok {
		return fmt.Errorf("%w: proveedor %s", domain.ErrNotFound, id)
	}
	for _, o := range st.orders {
		if o.SupplierID == id {
			return fmt.Errorf("%w: el proveedor %s tiene órdenes de compra", domain.ErrInvalidState, id)
		}
	}
	delete(st.suppliers, id)
	return nil
}

func uniqueSupplierName(st *state, s *entity.Supplier) error {
	for _, existing := range st.suppliers {
		if existing.ID != s.ID && existing.Name == s.Name {
			return fmt.Errorf("%w: proveedor %s", domain.ErrDuplicate, s.Name)
		}
	}
	return nil
}

func (r *supplierRepo) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	st, done := r.v.begin()
	defer done()
	s, ok := st.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func pageBounds(total, limit, offset int) (int, int) {
	if offset > total {
		offset = total
	}
	if offset < 0 {
		offset = 0
	}
	hi := total
	if limit > 0 && offset+limit < total {
		hi = offset + limit
	}
	return offset, hi
}
