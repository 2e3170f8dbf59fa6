package badger_device_records

import (
	"time"

	"github.com/dgraph-io/badger"
	"github.com/horockey/go-toolbox/prometheus_helpers"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opLoad = "load"
	opSave = "save"
)

type metrics struct {
	opTimeHist     *prometheus.HistogramVec
	opsCnt         *prometheus.CounterVec
	resetsCnt      prometheus.Counter
	recordsGauge   prometheus.Gauge
	dbSizeBytesGfn prometheus.GaugeFunc
}

func newMetrics(db *badger.DB) *metrics {
	const ss = "badger_device_records"
	return &metrics{
		opTimeHist: prometheus.NewHistogramVec(*prometheus_helpers.NewHistOpts(
			"op_time_hist",
			prometheus_helpers.HistOptsWithSubsystem(ss),
			prometheus_helpers.HistOptsWithHelp("Load and save time distribution"),
		), []string{"op"}),
		opsCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "ops_cnt",
			Subsystem: ss,
			Help:      "Count of load and save calls by result",
		}, []string{"op", "result"}),
		resetsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "resets_cnt",
			Subsystem: ss,
			Help:      "Count of storage resets caused by undecodable values",
		}),
		recordsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "records_gauge",
			Subsystem: ss,
			Help:      "Count of records after last successful load or save",
		}),
		dbSizeBytesGfn: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:      "db_size_bytes_gauge",
			Subsystem: ss,
			Help:      "LSM and value log size in bytes",
		}, func() float64 {
			lsm, vlog := db.Size()
			return float64(lsm + vlog)
		}),
	}
}

func (m *metrics) observe(op string, since time.Time, records int, err error) {
	m.opTimeHist.WithLabelValues(op).Observe(float64(time.Since(since)))

	if err != nil {
		m.opsCnt.WithLabelValues(op, "err").Inc()
		return
	}
	m.opsCnt.WithLabelValues(op, "ok").Inc()
	m.recordsGauge.Set(float64(records))
}

func (m *metrics) list() []prometheus.Collector {
	return []prometheus.Collector{
		m.opTimeHist,
		m.opsCnt,
		m.resetsCnt,
		m.recordsGauge,
		m.dbSizeBytesGfn,
	}
}
