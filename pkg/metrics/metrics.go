package metrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// errDuplicateMetric indicates a collector of the same name is already registered.
var errDuplicateMetric = errors.New("metric already registered")

// Inventory holds the totals of one storage scan.
type Inventory struct {
	Repositories int   // Number of repositories under the storage root.
	Bytes        int64 // Bytes stored across all repositories.
}

// Metrics handles processing and exposing access and inventory metrics.
type Metrics struct {
	events            chan types.AuditEvent    // Queue of audit events.
	inventories       chan *Inventory          // Queue of inventory results; nil marks a failed scan.
	accesses          *prometheus.CounterVec   // Accesses by operation and outcome.
	duration          *prometheus.HistogramVec // Repository open latency by operation.
	repositories      prometheus.Gauge         // Repositories found by the last scan.
	storageBytes      prometheus.Gauge         // Bytes found by the last scan.
	inventoryScans    prometheus.Counter       // Completed inventory scans.
	inventoryFailures prometheus.Counter       // Failed inventory scans.
	dropped           prometheus.Counter       // Updates dropped because a queue was full.
	last              atomic.Pointer[Inventory]
	stopCh            chan struct{}
	shutdownOnce      sync.Once
	//nolint:containedctx
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler with its processing goroutine started, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	// channelBufferSize sets the queue capacity.
	const channelBufferSize = 64

	ctx, cancel := context.WithCancel(context.Background())

	m := &Metrics{
		accesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minigit_git_access_total",
			Help: "Number of repository accesses through the git protocol gateway",
		}, []string{"operation", "success"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minigit_git_access_duration_seconds",
			Help:    "Time taken to resolve and open a repository for a git protocol request",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		repositories: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minigit_repositories",
			Help: "Number of repositories found by the last inventory scan",
		}),
		storageBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minigit_storage_bytes",
			Help: "Bytes stored across all repositories at the last inventory scan",
		}),
		inventoryScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minigit_inventory_scans_total",
			Help: "Number of inventory scans since minigit started",
		}),
		inventoryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minigit_inventory_scans_failed_total",
			Help: "Number of inventory scans that failed",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minigit_metrics_dropped_total",
			Help: "Number of metric updates dropped due to a full queue",
		}),
		events:      make(chan types.AuditEvent, channelBufferSize),
		inventories: make(chan *Inventory, channelBufferSize),
		stopCh:      make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}

	collectors := []prometheus.Collector{
		m.accesses,
		m.duration,
		m.repositories,
		m.storageBytes,
		m.inventoryScans,
		m.inventoryFailures,
		m.dropped,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			cancel()

			var alreadyRegistered prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegistered) {
				return nil, fmt.Errorf("%w: %w", errDuplicateMetric, err)
			}

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	go m.HandleUpdate()

	return m, nil
}

// Default initializes or returns the singleton Metrics handler registered
// against the default registry. It panics on registration failure.
func Default() *Metrics {
	metricsOnce.Do(func() {
		var err error

		metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
	})

	return metrics
}

// Observe implements types.AuditSink. The event is queued; when the queue is
// full it is dropped and counted.
func (m *Metrics) Observe(event types.AuditEvent) {
	select {
	case m.events <- event:
	default:
		m.dropped.Inc()
	}
}

// RegisterInventory queues the result of an inventory scan. A nil inventory
// records a failed scan and leaves the gauges untouched.
func (m *Metrics) RegisterInventory(inventory *Inventory) {
	select {
	case m.inventories <- inventory:
	default:
		m.dropped.Inc()
	}
}

// LastInventory returns the most recently processed inventory.
func (m *Metrics) LastInventory() (Inventory, bool) {
	last := m.last.Load()
	if last == nil {
		return Inventory{}, false
	}

	return *last, true
}

// QueueIsEmpty checks if both queues are empty.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.events) == 0 && len(m.inventories) == 0
}

// Shutdown stops the processing goroutine. It is idempotent.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.cancel()
	})
}

// HandleUpdate processes queued updates until Shutdown.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case event := <-m.events:
			operation := string(event.Operation)
			m.accesses.WithLabelValues(operation, strconv.FormatBool(event.Success)).Inc()
			m.duration.WithLabelValues(operation).Observe(event.Duration.Seconds())
		case inventory := <-m.inventories:
			m.inventoryScans.Inc()

			if inventory == nil {
				m.inventoryFailures.Inc()

				continue
			}

			m.repositories.Set(float64(inventory.Repositories))
			m.storageBytes.Set(float64(inventory.Bytes))
			m.last.Store(inventory)
		case <-m.stopCh:
			return
		case <-m.ctx.Done():
			return
		}
	}
}
