package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/horockey/devreg/internal/config"
	"github.com/horockey/devreg/internal/controller/http_controller/dto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (cfgPath string, host string) {
	serv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"cogmote"}`))
	}))
	t.Cleanup(serv.Close)

	host, port, err := net.SplitHostPort(serv.Listener.Addr().String())
	require.NoError(t, err)

	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "devreg.yaml")
	content := fmt.Sprintf(`
data_dir: %s
probe:
  port: %s
  timeout: 500ms
metrics:
  enabled: false
logging:
  level: error
`, dir, port)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	return cfgPath, host
}

func run(t *testing.T, args ...string) (string, error) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func Test_DeviceCommands(t *testing.T) {
	cfgPath, host := setup(t)

	out, err := run(t, "--config", cfgPath, "add", host)
	require.NoError(t, err)

	added := dto.Device{}
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, host, added.Address)
	assert.Equal(t, "online", added.Status)

	out, err = run(t, "--config", cfgPath, "list")
	require.NoError(t, err)

	list := []dto.Device{}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, host, list[0].Address)

	_, err = run(t, "--config", cfgPath, "delete", host)
	require.NoError(t, err)

	_, err = run(t, "--config", cfgPath, "get", host)
	assert.Error(t, err)

	out, err = run(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func Test_Discover(t *testing.T) {
	cfgPath, host := setup(t)

	out, err := run(t, "--config", cfgPath, "discover", host, "127.0.0.2")
	require.NoError(t, err)

	res := dto.DiscoverResponse{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Detected)
	assert.Len(t, res.Devices, 2)
}

func Test_NewStore(t *testing.T) {
	for _, backend := range []string{config.StoreJSON, config.StoreBadger, config.StoreMemory} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.DataDir = t.TempDir()
			cfg.Store.Backend = backend

			store, closeStore, err := newStore(cfg, zerolog.Nop())
			require.NoError(t, err)
			defer closeStore()

			recs, err := store.Load()
			require.NoError(t, err)
			assert.Empty(t, recs)
			assert.NotEmpty(t, store.Metrics())
		})
	}
}
