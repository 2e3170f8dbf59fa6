package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/horockey/devreg/internal/gateway/device_probe"
	"github.com/horockey/devreg/internal/model"
	"github.com/horockey/devreg/internal/repository/device_records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Processor owns the in-memory registry and keeps it in sync
// with probe results and the persistent store.
type Processor struct {
	registry    map[string]model.DeviceRecord
	mu          sync.RWMutex
	persistMu   sync.Mutex
	prober      device_probe.Gateway
	store       device_records.Repository
	concurrency int
	Logger      zerolog.Logger
	metrics     *metrics
}

// ReconcileOpts tunes a single Reconcile call.
type ReconcileOpts struct {
	// KnownOnly skips addresses that are absent from the registry at merge time.
	KnownOnly bool
	// OnRecord is called from probing goroutines as soon as each probe resolves.
	OnRecord func(model.DeviceRecord)
}

type probeResult struct {
	desc model.Descriptor
	err  error
}

// New creates a processor with an empty registry.
// Non-positive concurrency means no limit on parallel probes.
func New(
	prober device_probe.Gateway,
	store device_records.Repository,
	concurrency int,
	logger zerolog.Logger,
) *Processor {
	pr := &Processor{
		registry:    map[string]model.DeviceRecord{},
		prober:      prober,
		store:       store,
		concurrency: concurrency,
		Logger:      logger,
	}
	pr.metrics = newMetrics(pr)

	return pr
}

func (pr *Processor) Metrics() []prometheus.Collector {
	return pr.metrics.list()
}

// Load replaces registry contents with recs. Later duplicates win.
func (pr *Processor) Load(recs []model.DeviceRecord) {
	reg := make(map[string]model.DeviceRecord, len(recs))
	for _, rec := range recs {
		if rec.Address == "" {
			continue
		}
		reg[rec.Address] = rec.Clone()
	}

	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.registry = reg
}

// Reconcile probes every address concurrently, merges all results into
// the registry at once when the last probe resolves and persists the registry.
// Probes that fail because ctx was canceled are dropped from the batch.
func (pr *Processor) Reconcile(
	ctx context.Context,
	addresses []string,
	opts ReconcileOpts,
) model.Batch {
	defer func(ts time.Time) {
		pr.metrics.batchesCnt.Inc()
		pr.metrics.batchTimeHist.Observe(float64(time.Since(ts)))
	}(time.Now())

	pr.Logger.Debug().Int("addresses", len(addresses)).Bool("known_only", opts.KnownOnly).Msg("reconciling")

	results := make(map[string]probeResult, len(addresses))
	var resMu sync.Mutex

	var g errgroup.Group
	if pr.concurrency > 0 {
		g.SetLimit(pr.concurrency)
	}

	for _, addr := range addresses {
		g.Go(func() error {
			desc, err := pr.prober.Probe(ctx, addr)
			if err != nil && ctx.Err() != nil {
				pr.Logger.Debug().Str("address", addr).Msg("probe canceled, result dropped")
				return nil
			}
			if err != nil {
				pr.Logger.
					Debug().
					Err(err).
					Str("address", addr).
					Msg("device is offline")
			}

			res := probeResult{desc: desc, err: err}

			resMu.Lock()
			results[addr] = res
			resMu.Unlock()

			if opts.OnRecord != nil {
				prev, found := pr.Get(addr)
				opts.OnRecord(buildRecord(addr, res, prev, found))
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := pr.merge(results, opts.KnownOnly)
	pr.Persist()

	pr.Logger.
		Info().
		Int("probed", len(addresses)).
		Int("merged", len(batch.Records)).
		Int("online", batch.Online).
		Msg("reconcile batch finished")

	return batch
}

func (pr *Processor) merge(results map[string]probeResult, knownOnly bool) model.Batch {
	batch := model.Batch{Records: make([]model.DeviceRecord, 0, len(results))}

	pr.mu.Lock()
	defer pr.mu.Unlock()

	for addr, res := range results {
		prev, found := pr.registry[addr]
		if knownOnly && !found {
			continue
		}

		rec := buildRecord(addr, res, prev, found)
		pr.registry[addr] = rec

		switch rec.Status {
		case model.StatusOnline:
			batch.Online++
			pr.metrics.onlineCnt.Inc()
		default:
			pr.metrics.offlineCnt.Inc()
		}
		batch.Records = append(batch.Records, rec.Clone())
	}

	model.SortRecords(batch.Records)
	return batch
}

func buildRecord(addr string, res probeResult, prev model.DeviceRecord, found bool) model.DeviceRecord {
	if res.err == nil {
		return model.DeviceRecord{
			Address: addr,
			Status:  model.StatusOnline,
			Device:  res.desc,
		}
	}

	rec := model.DeviceRecord{
		Address: addr,
		Status:  model.StatusOffline,
	}
	if found {
		rec.Device = prev.Device
	}
	return rec
}

// Persist writes the current registry snapshot to the store.
// Saves are serialized so the last one always carries the newest state.
// Store errors are logged, registry stays authoritative.
func (pr *Processor) Persist() {
	pr.persistMu.Lock()
	defer pr.persistMu.Unlock()

	if err := pr.store.Save(pr.List()); err != nil {
		pr.metrics.persistErrCnt.Inc()
		pr.Logger.
			Error().
			Err(fmt.Errorf("saving registry: %w", err)).
			Send()
	}
}

func (pr *Processor) Get(address string) (model.DeviceRecord, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	rec, found := pr.registry[address]
	if !found {
		return model.DeviceRecord{}, false
	}
	return rec.Clone(), true
}

// Remove deletes address from the registry and reports whether it was present.
// Store is not touched.
func (pr *Processor) Remove(address string) bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	_, found := pr.registry[address]
	delete(pr.registry, address)
	return found
}

// List returns a snapshot of the registry sorted by address.
func (pr *Processor) List() []model.DeviceRecord {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	recs := lo.MapToSlice(pr.registry, func(_ string, rec model.DeviceRecord) model.DeviceRecord {
		return rec.Clone()
	})
	model.SortRecords(recs)
	return recs
}

func (pr *Processor) Addresses() []string {
	return lo.Map(pr.List(), func(rec model.DeviceRecord, _ int) string {
		return rec.Address
	})
}

func (pr *Processor) Len() int {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return len(pr.registry)
}

func (pr *Processor) OnlineLen() int {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return lo.CountBy(lo.Values(pr.registry), model.DeviceRecord.Online)
}
