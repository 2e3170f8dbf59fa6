package model_test

import (
	"testing"

	"github.com/horockey/devreg/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDeviceRecord_Valid(t *testing.T) {
	cases := map[string]struct {
		rec   model.DeviceRecord
		valid bool
	}{
		"full":         {model.DeviceRecord{Address: "10.0.0.1", Device: model.Descriptor(`{"a":1}`)}, true},
		"no address":   {model.DeviceRecord{Device: model.Descriptor(`{"a":1}`)}, false},
		"no device":    {model.DeviceRecord{Address: "10.0.0.1"}, false},
		"null device":  {model.DeviceRecord{Address: "10.0.0.1", Device: model.Descriptor(`null`)}, false},
		"empty object": {model.DeviceRecord{Address: "10.0.0.1", Device: model.Descriptor(`{}`)}, true},
		"zero device":  {model.DeviceRecord{Address: "10.0.0.1", Device: model.Descriptor(`0`)}, false},
		"false device": {model.DeviceRecord{Address: "10.0.0.1", Device: model.Descriptor(`false`)}, false},
		"empty string": {model.DeviceRecord{Address: "10.0.0.1", Device: model.Descriptor(`""`)}, false},
		"array device": {model.DeviceRecord{Address: "10.0.0.1", Device: model.Descriptor(`[{"a":1}]`)}, false},
		"broken":       {model.DeviceRecord{Address: "10.0.0.1", Device: model.Descriptor(`{"a":`)}, false},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.valid, c.rec.Valid())
		})
	}
}

func TestDeviceRecord_Clone(t *testing.T) {
	rec := model.DeviceRecord{Address: "a", Status: model.StatusOnline, Device: model.Descriptor(`{"x":1}`)}
	cp := rec.Clone()
	cp.Device[2] = 'y'

	assert.Equal(t, `{"x":1}`, string(rec.Device))
}

func TestSortRecords(t *testing.T) {
	recs := []model.DeviceRecord{{Address: "c"}, {Address: "a"}, {Address: "b"}}
	model.SortRecords(recs)

	assert.Equal(t, []model.DeviceRecord{{Address: "a"}, {Address: "b"}, {Address: "c"}}, recs)
}
