package telemetry

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	AttrDBStore = attribute.Key("db_store")
	AttrDBState = attribute.Key("state")
)

// PoolMetrics reports connection pool usage of the SQL stores.
// Values are read from sql.DB.Stats when the reader collects.
type PoolMetrics struct {
	mu    sync.RWMutex
	pools map[string]*sql.DB

	connections metric.Int64ObservableGauge
	maxOpen     metric.Int64ObservableGauge
	waitCount   metric.Int64ObservableCounter
	reg         metric.Registration
}

// NewPoolMetrics registers the pool instruments on meter
func NewPoolMetrics(meter metric.Meter) (*PoolMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &PoolMetrics{pools: make(map[string]*sql.DB)}

	var err error
	m.connections, err = meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	m.maxOpen, err = meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections allowed"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	m.waitCount, err = meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for because the pool was exhausted"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return nil, err
	}

	m.reg, err = meter.RegisterCallback(m.observe, m.connections, m.maxOpen, m.waitCount)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Track adds a pool under a store name. A nil db is ignored.
func (m *PoolMetrics) Track(store string, db *sql.DB) {
	if m == nil || db == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools[store] = db
}

// Stop unregisters the callback
func (m *PoolMetrics) Stop() error {
	if m == nil || m.reg == nil {
		return nil
	}
	return m.reg.Unregister()
}

func (m *PoolMetrics) observe(_ context.Context, o metric.Observer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stores := make([]string, 0, len(m.pools))
	for name := range m.pools {
		stores = append(stores, name)
	}
	sort.Strings(stores)

	for _, name := range stores {
		stats := m.pools[name].Stats()
		store := AttrDBStore.String(name)

		o.ObserveInt64(m.connections, int64(stats.Idle), metric.WithAttributes(store, AttrDBState.String("idle")))
		o.ObserveInt64(m.connections, int64(stats.InUse), metric.WithAttributes(store, AttrDBState.String("in_use")))
		o.ObserveInt64(m.connections, int64(stats.OpenConnections), metric.WithAttributes(store, AttrDBState.String("open")))
		o.ObserveInt64(m.maxOpen, int64(stats.MaxOpenConnections), metric.WithAttributes(store))
		o.ObserveInt64(m.waitCount, stats.WaitCount, metric.WithAttributes(store))
	}
	return nil
}
