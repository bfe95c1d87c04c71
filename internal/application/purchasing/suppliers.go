package purchasing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/retail-pos/internal/application/dto"
	"github.com/jhoicas/retail-pos/internal/application/inventory"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/jhoicas/retail-pos/internal/domain/entity"
	"github.com/jhoicas/retail-pos/internal/domain/repository"
	"github.com/jhoicas/retail-pos/pkg/logger"
)

const recentOrdersLimit = 10

// SupplierService alta, consulta y mantenimiento de proveedores.
type SupplierService struct {
	txRunner inventory.TxRunner
	log      *logger.Logger
}

func NewSupplierService(txRunner inventory.TxRunner, log *logger.Logger) *SupplierService {
	if log == nil {
		log = logger.Nop()
	}
	return &SupplierService{txRunner: txRunner, log: log.Named("suppliers")}
}

// SupplierDetail proveedor con sus órdenes más recientes.
type SupplierDetail struct {
	Supplier     *entity.Supplier
	RecentOrders []*entity.PurchaseOrder
	TotalOrders  int
}

// SupplierPage página de proveedores ordenada por nombre.
type SupplierPage struct {
	Suppliers  []*entity.Supplier
	Pagination dto.PageResponse
}

// Create registra un proveedor. Sin Active explícito queda activo.
func (s *SupplierService) Create(ctx context.Context, in dto.SupplierRequest) (*entity.Supplier, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	supplier := &entity.Supplier{ID: uuid.New().String(), Active: true}
	applySupplier(supplier, in)

	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		return repos.Suppliers.Create(ctx, supplier)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("supplier_id", supplier.ID).Str("name", supplier.Name).Msg("proveedor creado")
	return supplier, nil
}

// Get devuelve el proveedor con sus últimas órdenes de compra.
func (s *SupplierService) Get(ctx context.Context, id string) (*SupplierDetail, error) {
	out := &SupplierDetail{}
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		supplier, err := repos.Suppliers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if supplier == nil {
			return fmt.Errorf("%w: proveedor %s", domain.ErrNotFound, id)
		}
		out.Supplier = supplier
		out.RecentOrders, out.TotalOrders, err = repos.PurchaseOrders.List(ctx,
			repository.PurchaseOrderFilter{SupplierID: id}, recentOrdersLimit, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SupplierService) List(ctx context.Context, page dto.PageRequest) (*SupplierPage, error) {
	page.DefaultPage()
	if err := dto.Validate(page); err != nil {
		return nil, err
	}
	var (
		suppliers []*entity.Supplier
		total     int
	)
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		var err error
		suppliers, total, err = repos.Suppliers.List(ctx, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &SupplierPage{Suppliers: suppliers, Pagination: dto.NewPageResponse(page, total)}, nil
}

// Update reemplaza los datos del proveedor. Active nil conserva el estado actual.
func (s *SupplierService) Update(ctx context.Context, id string, in dto.SupplierRequest) (*entity.Supplier, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	var supplier *entity.Supplier
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		current, err := repos.Suppliers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: proveedor %s", domain.ErrNotFound, id)
		}
		applySupplier(current, in)
		if err := repos.Suppliers.Update(ctx, current); err != nil {
			return err
		}
		supplier = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("supplier_id", id).Bool("active", supplier.Active).Msg("proveedor actualizado")
	return supplier, nil
}

// Delete borra un proveedor sin órdenes. Con órdenes devuelve ErrInvalidState: hay que desactivarlo.
func (s *SupplierService) Delete(ctx context.Context, id string) error {
	err := s.txRunner.Run(ctx, func(ctx context.Context, repos inventory.Repos) error {
		return repos.Suppliers.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("supplier_id", id).Msg("proveedor eliminado")
	return nil
}

func applySupplier(s *entity.Supplier, in dto.SupplierRequest) {
	s.Name = in.Name
	s.ContactName = in.ContactName
	s.Email = in.Email
	s.Phone = in.Phone
	s.Address = in.Address
	s.TaxID = in.TaxID
	s.Notes = in.Notes
	if in.Active != nil {
		s.Active = *in.Active
	}
}
