package badger_device_records_test

import (
	"testing"

	"github.com/dgraph-io/badger"
	"github.com/horockey/devreg/internal/model"
	"github.com/horockey/devreg/internal/repository/device_records/badger_device_records"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) (*badger.DB, func()) {
	dir := t.TempDir()

	db, err := badger_device_records.Open(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open badger db: %v", err)
	}

	return db, func() {
		_ = db.Close()
	}
}

func Test_Load_Empty(t *testing.T) {
	db, teardown := setupDB(t)
	defer teardown()

	repo := badger_device_records.New(db, zerolog.Nop())

	recs, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func Test_SaveLoad(t *testing.T) {
	db, teardown := setupDB(t)
	defer teardown()

	repo := badger_device_records.New(db, zerolog.Nop())

	recs := []model.DeviceRecord{
		{Address: "10.0.0.1", Status: model.StatusOnline, Device: model.Descriptor(`{"name":"a"}`)},
		{Address: "10.0.0.2", Status: model.StatusOffline, Device: model.Descriptor(`{"name":"b"}`)},
	}
	require.NoError(t, repo.Save(recs))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, recs, loaded)
}

func Test_Save_ReplacesKeySet(t *testing.T) {
	db, teardown := setupDB(t)
	defer teardown()

	repo := badger_device_records.New(db, zerolog.Nop())

	require.NoError(t, repo.Save([]model.DeviceRecord{
		{Address: "10.0.0.1", Status: model.StatusOnline, Device: model.Descriptor(`{"name":"a"}`)},
		{Address: "10.0.0.2", Status: model.StatusOnline, Device: model.Descriptor(`{"name":"b"}`)},
	}))
	require.NoError(t, repo.Save([]model.DeviceRecord{
		{Address: "10.0.0.2", Status: model.StatusOffline, Device: model.Descriptor(`{"name":"b"}`)},
	}))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "10.0.0.2", loaded[0].Address)
	assert.Equal(t, model.StatusOffline, loaded[0].Status)
}

func Test_Load_DropsMalformedRecords(t *testing.T) {
	db, teardown := setupDB(t)
	defer teardown()

	repo := badger_device_records.New(db, zerolog.Nop())

	require.NoError(t, repo.Save([]model.DeviceRecord{
		{Address: "10.0.0.1", Status: model.StatusOnline, Device: model.Descriptor(`{"name":"a"}`)},
		{Address: "10.0.0.2", Status: model.StatusOffline},
	}))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "10.0.0.1", loaded[0].Address)
}

func Test_Load_CorruptValueResets(t *testing.T) {
	db, teardown := setupDB(t)
	defer teardown()

	repo := badger_device_records.New(db, zerolog.Nop())

	require.NoError(t, repo.Save([]model.DeviceRecord{
		{Address: "10.0.0.1", Status: model.StatusOnline, Device: model.Descriptor(`{"name":"a"}`)},
	}))
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("device/10.0.0.9"), []byte("definitely not gob"))
	}))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	loaded, err = repo.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
