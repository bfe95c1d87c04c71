// Package bootstrap arma los servicios del punto de venta a partir de la configuración.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/retail-pos/internal/application/inventory"
	"github.com/jhoicas/retail-pos/internal/application/ports"
	"github.com/jhoicas/retail-pos/internal/application/purchasing"
	"github.com/jhoicas/retail-pos/internal/application/sales"
	"github.com/jhoicas/retail-pos/internal/infrastructure/cache"
	"github.com/jhoicas/retail-pos/internal/infrastructure/metrics"
	"github.com/jhoicas/retail-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/retail-pos/pkg/config"
	"github.com/jhoicas/retail-pos/pkg/logger"
)

// Deps infraestructura ya construida.
type Deps struct {
	Config      *config.Config
	Log         *logger.Logger
	TxRunner    inventory.TxRunner
	Repos       inventory.Repos       // repositorios fuera de tx (consultas)
	Idempotency ports.IdempotencyStore // nil: sin deduplicación
	Registerer  prometheus.Registerer  // nil: registerer por defecto
}

// Services casos de uso listos para usar.
type Services struct {
	Metrics     *metrics.InventoryMetrics
	Coordinator *inventory.StockCoordinator
	Queries     *inventory.InventoryQueries
	Purchasing  *purchasing.Service
	Suppliers   *purchasing.SupplierService
	Sales       *sales.Service
}

// NewServices conecta los casos de uso sobre la infraestructura dada.
func NewServices(d Deps) *Services {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	m := metrics.NewInventoryMetrics(d.Registerer)
	coord := inventory.NewStockCoordinator(d.TxRunner, inventory.CoordinatorConfig{
		StrictFIFO: d.Config.Inventory.StrictFIFO,
		Logger:     log,
		Observer:   m,
	})
	return &Services{
		Metrics:     m,
		Coordinator: coord,
		Queries:     inventory.NewInventoryQueries(d.Repos, d.Config.Inventory.LowStockThreshold),
		Purchasing:  purchasing.NewService(d.TxRunner, coord, d.Idempotency, log),
		Suppliers:   purchasing.NewSupplierService(d.TxRunner, log),
		Sales:       sales.NewService(d.TxRunner, coord, d.Idempotency, m, log),
	}
}

// App servicios más los recursos que hay que cerrar al salir.
type App struct {
	*Services
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// Open conecta PostgreSQL y, si REDIS_ADDR está definido, Redis.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}

	var (
		client *redis.Client
		idem   ports.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		client, err = cache.New(ctx, cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("conexión a Redis: %w", err)
		}
		idem = cache.NewIdempotencyStore(client, time.Duration(cfg.Redis.KeyTTLHours)*time.Hour)
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: ventas y recepciones sin llaves de idempotencia")
	}

	svc := NewServices(Deps{
		Config:      cfg,
		Log:         log,
		TxRunner:    postgres.NewTxRunner(pool),
		Repos:       postgres.NewRepos(pool),
		Idempotency: idem,
	})
	return &App{Services: svc, Pool: pool, Redis: client}, nil
}

// Close libera conexiones.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Pool.Close()
}
