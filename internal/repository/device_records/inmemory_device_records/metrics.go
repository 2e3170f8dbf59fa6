package inmemory_device_records

import (
	"github.com/horockey/go-toolbox/prometheus_helpers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	handleTimeHist     prometheus.Histogram
	loadRequestsCnt    prometheus.Counter
	saveRequestsCnt    prometheus.Counter
	repoSizeItemsGauge prometheus.GaugeFunc
}

func newMetrics(repo *inmemoryDeviceRecords) *metrics {
	const ss = "inmemory_device_records"

	return &metrics{
		handleTimeHist: prometheus.NewHistogram(*prometheus_helpers.NewHistOpts(
			"handle_time_hist",
			prometheus_helpers.HistOptsWithSubsystem(ss),
			prometheus_helpers.HistOptsWithHelp("Handle time distribution"),
		)),
		loadRequestsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "load_requests_cnt",
			Subsystem: ss,
			Help:      "Count of load requests",
		}),
		saveRequestsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "save_requests_cnt",
			Subsystem: ss,
			Help:      "Count of save requests",
		}),
		repoSizeItemsGauge: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:      "repo_size_items_gauge",
			Subsystem: ss,
			Help:      "actual count of items in repo",
		}, func() float64 {
			return float64(repo.size())
		}),
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.handleTimeHist,
		m.loadRequestsCnt,
		m.saveRequestsCnt,
		m.repoSizeItemsGauge,
	}
}
