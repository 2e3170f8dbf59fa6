package devreg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/horockey/devreg/internal/controller/http_controller"
	"github.com/horockey/devreg/internal/gateway/device_probe/http_device_probe"
	"github.com/horockey/devreg/internal/model"
	"github.com/horockey/devreg/internal/processor"
	"github.com/horockey/devreg/internal/repository/device_records/json_device_records"
	"github.com/horockey/go-toolbox/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var _ model.Registry = &Registry{}

// Registry is the device registry facade.
// Create it with NewRegistry and call Initialize once before use.
type Registry struct {
	proc   *processor.Processor
	prober Prober
	store  Store
	ctrl   Controller
	logger zerolog.Logger

	initialized atomic.Bool
	loadingCnt  atomic.Int64
	detected    atomic.Int64

	subsMu  sync.RWMutex
	subs    map[uint64]func(Change)
	nextSub uint64
}

type createRegistryParams struct {
	dataDir      string
	probePort    int
	probeTimeout time.Duration
	concurrency  int
	httpAddr     string
	apiKey       string
	logger       zerolog.Logger

	store      Store
	prober     Prober
	controller Controller
}

func defaultCreateRegistryParams() createRegistryParams {
	dataDir, err := os.UserConfigDir()
	if err != nil {
		dataDir = "."
	}

	return createRegistryParams{
		dataDir:      dataDir,
		probePort:    http_device_probe.DefaultPort,
		probeTimeout: http_device_probe.DefaultTimeout,
		httpAddr:     "127.0.0.1:9013",
		logger: zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("scope", "devreg").
			Logger(),
	}
}

func NewRegistry(opts ...options.Option[createRegistryParams]) (*Registry, error) {
	params := defaultCreateRegistryParams()
	if err := options.ApplyOptions(&params, opts...); err != nil {
		return nil, fmt.Errorf("applying opts: %w", err)
	}

	if params.store == nil {
		params.store = json_device_records.New(
			params.dataDir,
			params.logger.With().Str("subscope", "json_store").Logger(),
		)
	}

	if params.prober == nil {
		params.prober = http_device_probe.New(
			params.probePort,
			params.probeTimeout,
			params.logger.With().Str("subscope", "probe").Logger(),
		)
	}

	if params.controller == nil {
		params.controller = http_controller.New(
			params.httpAddr,
			params.apiKey,
			params.logger.With().Str("subscope", "http_controller").Logger(),
		)
	}

	return &Registry{
		proc: processor.New(
			params.prober,
			params.store,
			params.concurrency,
			params.logger.With().Str("subscope", "processor").Logger(),
		),
		prober: params.prober,
		store:  params.store,
		ctrl:   params.controller,
		logger: params.logger,
		subs:   map[uint64]func(Change){},
	}, nil
}

// Initialize loads persisted devices, refreshes their liveness and saves the result.
// It returns when the refresh is done. Only the first call does anything,
// later calls return ErrAlreadyInitialized.
func (reg *Registry) Initialize(ctx context.Context) error {
	if !reg.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	reg.beginLoading()
	defer reg.endLoading()

	recs, err := reg.store.Load()
	if err != nil {
		reg.logger.
			Error().
			Err(fmt.Errorf("loading devices: %w", err)).
			Send()
		recs = nil
	}

	reg.proc.Load(recs)
	reg.logger.Info().Int("devices", reg.proc.Len()).Msg("registry loaded")

	batch := reg.proc.Reconcile(ctx, reg.proc.Addresses(), processor.ReconcileOpts{KnownOnly: true})
	reg.notify(Change{Kind: ChangeReconciled, Addresses: batchAddresses(batch)})

	return nil
}

// Start serves the controller until ctx is done.
func (reg *Registry) Start(ctx context.Context) error {
	if err := reg.ctrl.Start(ctx, reg); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("running controller: %w", err)
	}
	return nil
}

func (reg *Registry) Metrics() []prometheus.Collector {
	return slices.Concat(
		reg.ctrl.Metrics(),
		reg.proc.Metrics(),
		reg.store.Metrics(),
		reg.prober.Metrics(),
	)
}

// AddDevice probes a single address and records it as online or offline.
func (reg *Registry) AddDevice(ctx context.Context, address string) (DeviceRecord, error) {
	if address == "" {
		return DeviceRecord{}, ErrEmptyAddress
	}

	reg.beginLoading()
	defer reg.endLoading()

	batch := reg.proc.Reconcile(ctx, []string{address}, processor.ReconcileOpts{})
	reg.notify(Change{Kind: ChangeReconciled, Addresses: batchAddresses(batch)})

	rec, found := reg.proc.Get(address)
	if !found {
		return DeviceRecord{}, fmt.Errorf("probing %s: %w", address, context.Cause(ctx))
	}
	return rec, nil
}

// FetchDevices probes addresses in bulk. Detected devices counter
// restarts from zero and grows while probes come back online.
// The counter is shared: overlapping calls may add to each other's
// running value until each one stores its own final count.
func (reg *Registry) FetchDevices(ctx context.Context, addresses []string) Batch {
	reg.beginLoading()
	defer reg.endLoading()

	reg.detected.Store(0)

	batch := reg.proc.Reconcile(ctx, lo.Compact(addresses), processor.ReconcileOpts{
		OnRecord: func(rec DeviceRecord) {
			if rec.Online() {
				reg.detected.Add(1)
			}
		},
	})
	reg.detected.Store(int64(batch.Online))
	reg.notify(Change{Kind: ChangeReconciled, Addresses: batchAddresses(batch)})

	return batch
}

// ReconnectDevice re-probes every device currently in the registry.
func (reg *Registry) ReconnectDevice(ctx context.Context) Batch {
	batch := reg.proc.Reconcile(ctx, reg.proc.Addresses(), processor.ReconcileOpts{KnownOnly: true})
	reg.notify(Change{Kind: ChangeReconciled, Addresses: batchAddresses(batch)})

	return batch
}

func (reg *Registry) GetDevice(address string) (DeviceRecord, bool) {
	return reg.proc.Get(address)
}

// Devices returns all devices sorted by address.
func (reg *Registry) Devices() []DeviceRecord {
	return reg.proc.List()
}

// DeleteDevice removes address from the registry and saves it.
// Reports whether the device was known.
func (reg *Registry) DeleteDevice(address string) bool {
	found := reg.proc.Remove(address)
	reg.proc.Persist()
	reg.notify(Change{Kind: ChangeDeleted, Addresses: []string{address}})

	return found
}

func (reg *Registry) NumberOfDetectedDevices() int {
	return int(reg.detected.Load())
}

func (reg *Registry) Loading() bool {
	return reg.loadingCnt.Load() > 0
}

// Subscribe registers cb to be called after every registry change.
// Callbacks run synchronously on the mutating goroutine.
func (reg *Registry) Subscribe(cb func(Change)) (unsubscribe func()) {
	reg.subsMu.Lock()
	defer reg.subsMu.Unlock()

	id := reg.nextSub
	reg.nextSub++
	reg.subs[id] = cb

	return func() {
		reg.subsMu.Lock()
		defer reg.subsMu.Unlock()
		delete(reg.subs, id)
	}
}

func (reg *Registry) notify(ch Change) {
	reg.subsMu.RLock()
	cbs := lo.Values(reg.subs)
	reg.subsMu.RUnlock()

	for _, cb := range cbs {
		cb(ch)
	}
}

func (reg *Registry) beginLoading() {
	if reg.loadingCnt.Add(1) == 1 {
		reg.notify(Change{Kind: ChangeLoading, Loading: true})
	}
}

func (reg *Registry) endLoading() {
	if reg.loadingCnt.Add(-1) == 0 {
		reg.notify(Change{Kind: ChangeLoading, Loading: false})
	}
}

func batchAddresses(b Batch) []string {
	return lo.Map(b.Records, func(rec DeviceRecord, _ int) string {
		return rec.Address
	})
}
