// Package metrics expone colectores Prometheus del motor de inventario.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/retail-pos/internal/application/inventory"
	"github.com/jhoicas/retail-pos/internal/domain"
)

var _ inventory.Observer = (*InventoryMetrics)(nil)

// Resultados de una mutación de stock.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected" // error de negocio: validación, estado, stock insuficiente
	ResultError    = "error"    // error de infraestructura
)

// InventoryMetrics cuenta mutaciones de stock y faltantes FIFO. Un receptor nil no registra nada.
type InventoryMetrics struct {
	mutations       *prometheus.CounterVec
	shortfallEvents prometheus.Counter
	shortfallUnits  prometheus.Counter
}

// NewInventoryMetrics registra los colectores. registerer nil usa el registerer por defecto.
func NewInventoryMetrics(registerer prometheus.Registerer) *InventoryMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &InventoryMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "retail_pos",
			Subsystem: "inventory",
			Name:      "mutations_total",
			Help:      "Mutaciones de stock por operación y resultado.",
		}, []string{"op", "result"}),
		shortfallEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retail_pos",
			Subsystem: "inventory",
			Name:      "fifo_shortfall_total",
			Help:      "Consumos en los que los lotes no cubrieron la cantidad pedida.",
		}),
		shortfallUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "retail_pos",
			Subsystem: "inventory",
			Name:      "fifo_shortfall_units_total",
			Help:      "Unidades consumidas sin lote que las respalde.",
		}),
	}
	registerer.MustRegister(m.mutations, m.shortfallEvents, m.shortfallUnits)
	return m
}

// MutationCompleted cuenta una operación terminada.
func (m *InventoryMetrics) MutationCompleted(op string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, classify(err)).Inc()
}

// FIFOShortfall cuenta un faltante de lotes.
func (m *InventoryMetrics) FIFOShortfall(missing int) {
	if m == nil || missing <= 0 {
		return
	}
	m.shortfallEvents.Inc()
	m.shortfallUnits.Add(float64(missing))
}

func classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrDataInconsistency),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrConflict):
		return ResultRejected
	default:
		return ResultError
	}
}
