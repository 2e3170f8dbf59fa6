package http_device_probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/horockey/devreg/internal/gateway/device_probe"
	"github.com/horockey/devreg/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	DefaultPort    = 9012
	DefaultTimeout = time.Second
)

var _ device_probe.Gateway = &httpDeviceProbe{}

type httpDeviceProbe struct {
	cl      *resty.Client
	timeout time.Duration
	metrics *metrics
	logger  zerolog.Logger
}

func New(
	port int,
	timeout time.Duration,
	logger zerolog.Logger,
) *httpDeviceProbe {
	return &httpDeviceProbe{
		timeout: timeout,
		metrics: newMetrics(),
		logger:  logger,
		cl: resty.New().
			SetPathParam("port", strconv.Itoa(port)).
			SetHeader("Accept", "application/json").
			SetRetryCount(0),
	}
}

func (gw *httpDeviceProbe) Metrics() []prometheus.Collector {
	return gw.metrics.list()
}

func (gw *httpDeviceProbe) Probe(
	ctx context.Context,
	address string,
) (res model.Descriptor, resErr error) {
	gw.logger.Debug().Str("address", address).Msg("probing device")
	defer func(ts time.Time) {
		gw.metrics.requestsCnt.Inc()
		gw.metrics.handleTimeHist.Observe(float64(time.Since(ts)))

		switch {
		case resErr == nil:
			gw.metrics.successProcessCnt.Inc()
		case errors.Is(resErr, context.DeadlineExceeded):
			gw.metrics.timeoutsCnt.Inc()
			fallthrough
		default:
			gw.metrics.errProcessCnt.Inc()
		}
	}(time.Now())

	probeCtx, cancel := context.WithTimeout(ctx, gw.timeout)
	defer cancel()

	resp, err := gw.cl.R().
		SetContext(probeCtx).
		SetRawPathParam("address", address).
		Get("http://{address}:{port}/api/device")
	if err != nil {
		return nil, model.ProbeFailedError{
			Address: address,
			Reason:  fmt.Errorf("executing request: %w", err),
		}
	}
	if !resp.IsSuccess() {
		return nil, model.ProbeFailedError{
			Address: address,
			Reason:  fmt.Errorf("got non-ok response (%s): %s", resp.Status(), resp.String()),
		}
	}

	desc, err := decodeDescriptor(resp.Body())
	if err != nil {
		return nil, model.ProbeFailedError{
			Address: address,
			Reason:  fmt.Errorf("decoding descriptor: %w", err),
		}
	}

	return desc, nil
}

func decodeDescriptor(body []byte) (model.Descriptor, error) {
	obj := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if obj == nil {
		return nil, errors.New("got null descriptor")
	}

	buf := bytes.NewBuffer(nil)
	if err := json.Compact(buf, body); err != nil {
		return nil, fmt.Errorf("compacting json: %w", err)
	}

	return model.Descriptor(buf.Bytes()), nil
}
