package inmemory_device_records

import (
	"sync"
	"time"

	"github.com/horockey/devreg/internal/model"
	"github.com/horockey/devreg/internal/repository/device_records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

var _ device_records.Repository = &inmemoryDeviceRecords{}

// inmemoryDeviceRecords keeps the last saved snapshot in process memory.
// Nothing survives a restart.
type inmemoryDeviceRecords struct {
	storage []model.DeviceRecord
	saves   int
	mu      sync.RWMutex
	metrics *metrics
}

func New(initial ...model.DeviceRecord) *inmemoryDeviceRecords {
	repo := inmemoryDeviceRecords{
		storage: cloneRecords(initial),
	}

	repo.metrics = newMetrics(&repo)

	return &repo
}

func (repo *inmemoryDeviceRecords) Metrics() []prometheus.Collector {
	return repo.metrics.list()
}

func (repo *inmemoryDeviceRecords) Load() ([]model.DeviceRecord, error) {
	repo.metrics.loadRequestsCnt.Inc()
	defer func(ts time.Time) {
		repo.metrics.handleTimeHist.Observe(float64(time.Since(ts)))
	}(time.Now())

	repo.mu.RLock()
	defer repo.mu.RUnlock()

	return lo.Filter(cloneRecords(repo.storage), func(rec model.DeviceRecord, _ int) bool {
		return rec.Valid()
	}), nil
}

func (repo *inmemoryDeviceRecords) Save(recs []model.DeviceRecord) error {
	repo.metrics.saveRequestsCnt.Inc()
	defer func(ts time.Time) {
		repo.metrics.handleTimeHist.Observe(float64(time.Since(ts)))
	}(time.Now())

	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.storage = cloneRecords(recs)
	repo.saves++

	return nil
}

// Saves returns how many times Save was called.
func (repo *inmemoryDeviceRecords) Saves() int {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	return repo.saves
}

// Snapshot returns the last saved records unfiltered.
func (repo *inmemoryDeviceRecords) Snapshot() []model.DeviceRecord {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	return cloneRecords(repo.storage)
}

func (repo *inmemoryDeviceRecords) size() int {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	return len(repo.storage)
}

func cloneRecords(recs []model.DeviceRecord) []model.DeviceRecord {
	return lo.Map(recs, func(rec model.DeviceRecord, _ int) model.DeviceRecord {
		return rec.Clone()
	})
}
