package badger_device_records

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/horockey/devreg/internal/model"
	"github.com/horockey/devreg/internal/repository/device_records"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var _ device_records.Repository = &badgerDeviceRecords{}

// Records are stored one per key, key is the device address.
const keyPrefix = "device/"

type badgerDeviceRecords struct {
	db      *badger.DB
	logger  zerolog.Logger
	metrics *metrics
}

func New(db *badger.DB, logger zerolog.Logger) *badgerDeviceRecords {
	return &badgerDeviceRecords{
		db:      db,
		logger:  logger,
		metrics: newMetrics(db),
	}
}

func (repo *badgerDeviceRecords) Metrics() []prometheus.Collector {
	return repo.metrics.list()
}

func (repo *badgerDeviceRecords) Load() (resRecs []model.DeviceRecord, resErr error) {
	defer func(ts time.Time) {
		repo.metrics.observe(opLoad, ts, len(resRecs), resErr)
	}(time.Now())

	recs := []model.DeviceRecord{}

	err := repo.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			rec := model.DeviceRecord{}
			if err := item.Value(func(val []byte) error {
				if err := gob.
					NewDecoder(bytes.NewBuffer(val)).
					Decode(&rec); err != nil {
					return fmt.Errorf("decoding gob: %w", err)
				}
				return nil
			}); err != nil {
				return fmt.Errorf("getting value of %s: %w", item.Key(), err)
			}

			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return repo.reset(fmt.Errorf("performing view txn: %w", err))
	}

	valid := lo.Filter(recs, func(rec model.DeviceRecord, _ int) bool {
		return rec.Valid()
	})
	if dropped := len(recs) - len(valid); dropped > 0 {
		repo.logger.Warn().Int("dropped", dropped).Msg("skipping malformed records")
	}

	return valid, nil
}

func (repo *badgerDeviceRecords) Save(recs []model.DeviceRecord) (resErr error) {
	defer func(ts time.Time) {
		repo.metrics.observe(opSave, ts, len(recs), resErr)
	}(time.Now())

	keep := lo.SliceToMap(recs, func(rec model.DeviceRecord) (string, struct{}) {
		return keyPrefix + rec.Address, struct{}{}
	})

	if err := repo.db.Update(func(txn *badger.Txn) error {
		stale, err := staleKeys(txn, keep)
		if err != nil {
			return fmt.Errorf("listing stale keys: %w", err)
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("deleting item: %w", err)
			}
		}

		for _, rec := range recs {
			buf := bytes.NewBuffer(nil)
			if err := gob.
				NewEncoder(buf).
				Encode(rec); err != nil {
				return fmt.Errorf("encoding gob: %w", err)
			}

			if err := txn.Set([]byte(keyPrefix+rec.Address), buf.Bytes()); err != nil {
				return fmt.Errorf("setting item to db: %w", err)
			}
		}

		return nil
	}); err != nil {
		return fmt.Errorf("performing upd txn: %w", err)
	}

	return nil
}

func staleKeys(txn *badger.Txn, keep map[string]struct{}) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(keyPrefix)
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	res := [][]byte{}
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		if _, found := keep[string(key)]; !found {
			res = append(res, key)
		}
	}

	return res, nil
}

func (repo *badgerDeviceRecords) reset(cause error) ([]model.DeviceRecord, error) {
	repo.metrics.resetsCnt.Inc()
	repo.logger.
		Error().
		Err(cause).
		Msg("device records are unreadable, resetting to empty")

	if err := repo.db.DropAll(); err != nil {
		return nil, fmt.Errorf("dropping all records: %w", err)
	}

	return []model.DeviceRecord{}, nil
}
