// migrate_batches crea lotes de migración para el stock que existía antes del costeo por lotes.
// Cada producto con stock mayor a la suma de sus lotes recibe un lote MIGRATION-<id> al costo vigente.
//
// Uso: go run ./cmd/migrate_batches [-schema] [-dry-run] [-workers 4]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/retail-pos/internal/bootstrap"
	"github.com/jhoicas/retail-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/retail-pos/pkg/config"
	"github.com/jhoicas/retail-pos/pkg/logger"
)

func main() {
	schema := flag.Bool("schema", false, "aplicar las migraciones SQL antes de migrar lotes")
	dryRun := flag.Bool("dry-run", false, "solo listar los productos con stock sin lote")
	workers := flag.Int("workers", 4, "productos procesados en paralelo")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Named("migrate_batches")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar")
	}
	defer app.Close()

	if *schema {
		applied, err := postgres.Migrate(ctx, app.Pool)
		if err != nil {
			log.Fatal().Err(err).Msg("aplicar esquema")
		}
		log.Info().Strs("files", applied).Msg("esquema aplicado")
	}

	pending, err := postgres.NewProductRepository(app.Pool).ListUntracked(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listar stock sin lote")
	}
	log.Info().Int("products", len(pending)).Msg("productos con stock sin lote")
	if *dryRun {
		for _, p := range pending {
			log.Info().Str("product_id", p.ProductID).Int("stock", p.Stock).Int("untracked", p.Untracked()).Msg("pendiente")
		}
		return
	}

	var migrated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for _, p := range pending {
		g.Go(func() error {
			batch, err := app.Coordinator.BackfillUntrackedStock(gctx, p.ProductID)
			if err != nil {
				// Un producto fallido no detiene al resto.
				failed.Add(1)
				log.Error().Err(err).Str("product_id", p.ProductID).Msg("no se pudo migrar")
				return nil
			}
			if batch == nil {
				return nil
			}
			migrated.Add(1)
			log.Info().
				Str("product_id", p.ProductID).
				Int("units", batch.QuantityReceived).
				Str("unit_cost", batch.UnitCost.String()).
				Msg("lote de migración creado")
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int64("migrated", migrated.Load()).
		Int64("failed", failed.Load()).
		Int("total", len(pending)).
		Msg("migración de lotes terminada")
	if failed.Load() > 0 {
		app.Close()
		stop()
		os.Exit(1)
	}
}
