package processor

import (
	"github.com/horockey/go-toolbox/prometheus_helpers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	batchTimeHist       prometheus.Histogram
	batchesCnt          prometheus.Counter
	onlineCnt           prometheus.Counter
	offlineCnt          prometheus.Counter
	persistErrCnt       prometheus.Counter
	registrySizeGauge   prometheus.GaugeFunc
	registryOnlineGauge prometheus.GaugeFunc
}

func newMetrics(pr *Processor) *metrics {
	const ss = "processor"
	return &metrics{
		batchTimeHist: prometheus.NewHistogram(*prometheus_helpers.NewHistOpts(
			"batch_time_hist",
			prometheus_helpers.HistOptsWithSubsystem(ss),
			prometheus_helpers.HistOptsWithHelp("Reconcile batch time distribution"),
		)),
		batchesCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "batches_cnt",
			Subsystem: ss,
			Help:      "Count of reconcile batches",
		}),
		onlineCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "online_results_cnt",
			Subsystem: ss,
			Help:      "Count of probes merged as online",
		}),
		offlineCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "offline_results_cnt",
			Subsystem: ss,
			Help:      "Count of probes merged as offline",
		}),
		persistErrCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "persist_err_cnt",
			Subsystem: ss,
			Help:      "Count of failed registry saves",
		}),
		registrySizeGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:      "registry_size_gauge",
			Subsystem: ss,
			Help:      "actual count of devices in registry",
		}, func() float64 {
			return float64(pr.Len())
		}),
		registryOnlineGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:      "registry_online_gauge",
			Subsystem: ss,
			Help:      "actual count of online devices in registry",
		}, func() float64 {
			return float64(pr.OnlineLen())
		}),
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.batchTimeHist,
		m.batchesCnt,
		m.onlineCnt,
		m.offlineCnt,
		m.persistErrCnt,
		m.registrySizeGauge,
		m.registryOnlineGauge,
	}
}
