package http_device_probe_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/horockey/devreg/internal/gateway/device_probe/http_device_probe"
	"github.com/horockey/devreg/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T, h http.HandlerFunc) (host string, port int) {
	t.Helper()

	serv := httptest.NewServer(h)
	t.Cleanup(serv.Close)

	u, err := url.Parse(serv.URL)
	require.NoError(t, err)

	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	port, err = strconv.Atoi(portStr)
	require.NoError(t, err)

	return host, port
}

func Test_Probe_Success(t *testing.T) {
	host, port := setupServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/device", req.URL.Path)
		assert.Equal(t, http.MethodGet, req.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{ "name": "cogmote-1", "version": "1.2.0" }`))
	})

	gw := http_device_probe.New(port, time.Second, zerolog.Nop())

	desc, err := gw.Probe(context.Background(), host)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"cogmote-1","version":"1.2.0"}`, string(desc))
	assert.Equal(t, `{"name":"cogmote-1","version":"1.2.0"}`, string(desc))
}

func Test_Probe_NonOK(t *testing.T) {
	host, port := setupServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	gw := http_device_probe.New(port, time.Second, zerolog.Nop())

	desc, err := gw.Probe(context.Background(), host)
	assert.Nil(t, desc)

	var probeErr model.ProbeFailedError
	require.True(t, errors.As(err, &probeErr))
	assert.Equal(t, host, probeErr.Address)
}

func Test_Probe_BadBody(t *testing.T) {
	for name, body := range map[string]string{
		"garbage": `not json`,
		"null":    `null`,
		"array":   `[1, 2]`,
	} {
		t.Run(name, func(t *testing.T) {
			host, port := setupServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			gw := http_device_probe.New(port, time.Second, zerolog.Nop())

			desc, err := gw.Probe(context.Background(), host)
			assert.Nil(t, desc)
			assert.ErrorAs(t, err, &model.ProbeFailedError{})
		})
	}
}

func Test_Probe_Timeout(t *testing.T) {
	host, port := setupServer(t, func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	gw := http_device_probe.New(port, 50*time.Millisecond, zerolog.Nop())

	start := time.Now()
	_, err := gw.Probe(context.Background(), host)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func Test_Probe_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	gw := http_device_probe.New(port, time.Second, zerolog.Nop())

	_, err = gw.Probe(context.Background(), "127.0.0.1")
	assert.ErrorAs(t, err, &model.ProbeFailedError{})
}
