package json_device_records

import (
	"github.com/horockey/go-toolbox/prometheus_helpers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	loadTimeHist    prometheus.Histogram
	saveTimeHist    prometheus.Histogram
	failuresCnt     *prometheus.CounterVec
	resetsCnt       prometheus.Counter
	recordsGauge    prometheus.Gauge
	lastSaveTsGauge prometheus.Gauge
}

func newMetrics() *metrics {
	const ss = "json_device_records"
	return &metrics{
		loadTimeHist: prometheus.NewHistogram(*prometheus_helpers.NewHistOpts(
			"load_time_hist",
			prometheus_helpers.HistOptsWithSubsystem(ss),
			prometheus_helpers.HistOptsWithHelp("File load time distribution"),
		)),
		saveTimeHist: prometheus.NewHistogram(*prometheus_helpers.NewHistOpts(
			"save_time_hist",
			prometheus_helpers.HistOptsWithSubsystem(ss),
			prometheus_helpers.HistOptsWithHelp("File save time distribution"),
		)),
		failuresCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "failures_cnt",
			Subsystem: ss,
			Help:      "Count of load and save calls returned error",
		}, []string{"op"}),
		resetsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "resets_cnt",
			Subsystem: ss,
			Help:      "Count of storage resets caused by unreadable file",
		}),
		recordsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "records_gauge",
			Subsystem: ss,
			Help:      "Count of records in last loaded or saved file",
		}),
		lastSaveTsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "last_save_ts_gauge",
			Subsystem: ss,
			Help:      "Unix time of last successful save",
		}),
	}
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.loadTimeHist,
		m.saveTimeHist,
		m.failuresCnt,
		m.resetsCnt,
		m.recordsGauge,
		m.lastSaveTsGauge,
	}
}
