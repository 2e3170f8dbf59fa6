package http_controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/horockey/devreg/internal/controller/http_controller"
	"github.com/horockey/devreg/internal/controller/http_controller/dto"
	"github.com/horockey/devreg/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	devices  map[string]model.DeviceRecord
	detected int
	deleted  []string
}

func (r *fakeRegistry) AddDevice(_ context.Context, address string) (model.DeviceRecord, error) {
	if address == "" {
		return model.DeviceRecord{}, model.ErrEmptyAddress
	}
	rec := model.DeviceRecord{Address: address, Status: model.StatusOnline, Device: model.Descriptor(`{"n":1}`)}
	r.devices[address] = rec
	return rec, nil
}

func (r *fakeRegistry) FetchDevices(_ context.Context, addresses []string) model.Batch {
	batch := model.Batch{}
	for _, addr := range addresses {
		rec := model.DeviceRecord{Address: addr, Status: model.StatusOffline}
		if strings.HasPrefix(addr, "up") {
			rec.Status = model.StatusOnline
			rec.Device = model.Descriptor(`{}`)
			batch.Online++
		}
		r.devices[addr] = rec
		batch.Records = append(batch.Records, rec)
	}
	r.detected = batch.Online
	return batch
}

func (r *fakeRegistry) ReconnectDevice(_ context.Context) model.Batch {
	return model.Batch{Records: r.Devices()}
}

func (r *fakeRegistry) GetDevice(address string) (model.DeviceRecord, bool) {
	rec, found := r.devices[address]
	return rec, found
}

func (r *fakeRegistry) Devices() []model.DeviceRecord {
	recs := []model.DeviceRecord{}
	for _, rec := range r.devices {
		recs = append(recs, rec)
	}
	model.SortRecords(recs)
	return recs
}

func (r *fakeRegistry) DeleteDevice(address string) bool {
	_, found := r.devices[address]
	delete(r.devices, address)
	r.deleted = append(r.deleted, address)
	return found
}

func (r *fakeRegistry) NumberOfDetectedDevices() int { return r.detected }

func (r *fakeRegistry) Loading() bool { return false }

func setup(t *testing.T, apiKey string) (*httptest.Server, *fakeRegistry) {
	reg := &fakeRegistry{devices: map[string]model.DeviceRecord{}}

	ctrl := http_controller.New("127.0.0.1:0", apiKey, zerolog.Nop())
	ctrl.Bind(reg)

	serv := httptest.NewServer(ctrl.Handler())
	t.Cleanup(serv.Close)

	return serv, reg
}

func do(t *testing.T, method, url, body string) *http.Response {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func Test_AddAndGet(t *testing.T) {
	serv, reg := setup(t, "")

	resp := do(t, http.MethodPost, serv.URL+"/devices", `{"address":"10.0.0.1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	added := dto.Device{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	assert.Equal(t, "10.0.0.1", added.Address)
	assert.Equal(t, "online", added.Status)
	assert.Contains(t, reg.devices, "10.0.0.1")

	resp = do(t, http.MethodGet, serv.URL+"/devices/10.0.0.1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := dto.Device{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, added, got)
}

func Test_AddEmptyAddress(t *testing.T) {
	serv, _ := setup(t, "")

	resp := do(t, http.MethodPost, serv.URL+"/devices", `{"address":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, serv.URL+"/devices", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_GetUnknown(t *testing.T) {
	serv, _ := setup(t, "")

	resp := do(t, http.MethodGet, serv.URL+"/devices/10.9.9.9", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func Test_Discover(t *testing.T) {
	serv, _ := setup(t, "")

	resp := do(t, http.MethodPost, serv.URL+"/devices/discover", `{"addresses":["up-1","up-2","down-3"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := dto.DiscoverResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 2, res.Detected)
	assert.Len(t, res.Devices, 3)

	resp = do(t, http.MethodGet, serv.URL+"/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := dto.Status{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, dto.Status{Loading: false, Detected: 2, Count: 3}, status)
}

func Test_ListAndDelete(t *testing.T) {
	serv, reg := setup(t, "")
	reg.FetchDevices(context.Background(), []string{"up-b", "up-a"})

	resp := do(t, http.MethodGet, serv.URL+"/devices", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := []dto.Device{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "up-a", list[0].Address)

	resp = do(t, http.MethodDelete, serv.URL+"/devices/up-a", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"up-a"}, reg.deleted)
	assert.NotContains(t, reg.devices, "up-a")

	resp = do(t, http.MethodPost, serv.URL+"/devices/reconnect", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list = []dto.Device{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "up-b", list[0].Address)
}

func Test_APIKey(t *testing.T) {
	serv, _ := setup(t, "secret")

	resp := do(t, http.MethodGet, serv.URL+"/devices", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, serv.URL+"/devices", nil)
	require.NoError(t, err)
	req.Header.Set("X-Api-Key", "secret")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
