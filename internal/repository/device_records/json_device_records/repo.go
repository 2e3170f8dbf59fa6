package json_device_records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/horockey/devreg/internal/model"
	"github.com/horockey/devreg/internal/repository/device_records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var _ device_records.Repository = &jsonDeviceRecords{}

const (
	AppDir   = "cogmote"
	FileName = "devices.json"

	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

var emptyDoc = []byte("[]")

type jsonDeviceRecords struct {
	path    string
	mu      sync.Mutex
	logger  zerolog.Logger
	metrics *metrics
}

// New creates file storage at <dataDir>/cogmote/devices.json.
// Nothing is touched on disk until the first Load or Save.
func New(dataDir string, logger zerolog.Logger) *jsonDeviceRecords {
	return &jsonDeviceRecords{
		path:    filepath.Join(dataDir, AppDir, FileName),
		logger:  logger,
		metrics: newMetrics(),
	}
}

func (repo *jsonDeviceRecords) Path() string {
	return repo.path
}

func (repo *jsonDeviceRecords) Metrics() []prometheus.Collector {
	return repo.metrics.list()
}

func (repo *jsonDeviceRecords) Load() (resRecs []model.DeviceRecord, resErr error) {
	defer func(ts time.Time) {
		repo.metrics.loadTimeHist.Observe(float64(time.Since(ts)))
		if resErr != nil {
			repo.metrics.failuresCnt.WithLabelValues("load").Inc()
			return
		}
		repo.metrics.recordsGauge.Set(float64(len(resRecs)))
	}(time.Now())

	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(repo.path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}

	data, err := os.ReadFile(repo.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		repo.logger.Info().Str("path", repo.path).Msg("devices file not found, creating empty one")
		if err := repo.writeFile(emptyDoc); err != nil {
			return nil, fmt.Errorf("creating devices file: %w", err)
		}
		return []model.DeviceRecord{}, nil
	case err != nil:
		return repo.reset(fmt.Errorf("reading devices file: %w", err))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		data = emptyDoc
	}

	recs := []model.DeviceRecord{}
	if err := json.Unmarshal(data, &recs); err != nil {
		return repo.reset(fmt.Errorf("unmarshaling devices file: %w", err))
	}

	valid := lo.FilterMap(recs, func(rec model.DeviceRecord, _ int) (model.DeviceRecord, bool) {
		if !rec.Valid() {
			return model.DeviceRecord{}, false
		}
		buf := bytes.NewBuffer(nil)
		if err := json.Compact(buf, rec.Device); err == nil {
			rec.Device = buf.Bytes()
		}
		return rec, true
	})
	if dropped := len(recs) - len(valid); dropped > 0 {
		repo.logger.Warn().Int("dropped", dropped).Str("path", repo.path).Msg("skipping malformed records")
	}

	return valid, nil
}

func (repo *jsonDeviceRecords) Save(recs []model.DeviceRecord) (resErr error) {
	defer func(ts time.Time) {
		repo.metrics.saveTimeHist.Observe(float64(time.Since(ts)))
		if resErr != nil {
			repo.metrics.failuresCnt.WithLabelValues("save").Inc()
			return
		}
		repo.metrics.recordsGauge.Set(float64(len(recs)))
		repo.metrics.lastSaveTsGauge.SetToCurrentTime()
	}(time.Now())

	if recs == nil {
		recs = []model.DeviceRecord{}
	}

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(repo.path), dirPerm); err != nil {
		return fmt.Errorf("creating storage dir: %w", err)
	}

	if err := repo.writeFile(data); err != nil {
		return fmt.Errorf("writing devices file: %w", err)
	}

	return nil
}

// reset must be called with mu held.
func (repo *jsonDeviceRecords) reset(cause error) ([]model.DeviceRecord, error) {
	repo.metrics.resetsCnt.Inc()
	repo.logger.
		Error().
		Err(cause).
		Str("path", repo.path).
		Msg("devices file is unreadable, resetting to empty")

	if err := repo.writeFile(emptyDoc); err != nil {
		return nil, fmt.Errorf("resetting devices file: %w", errors.Join(cause, err))
	}

	return []model.DeviceRecord{}, nil
}

// writeFile replaces the file via temp file and rename, so a reader
// never sees a half-written document. Must be called with mu held.
func (repo *jsonDeviceRecords) writeFile(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(repo.path), FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting temp file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), repo.path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
