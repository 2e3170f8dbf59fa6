package http_controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/horockey/devreg/internal/controller/http_controller/dto"
	"github.com/horockey/devreg/internal/model"
	"github.com/horockey/go-toolbox/http_helpers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type HttpController struct {
	serv    *http.Server
	apiKey  string
	reg     model.Registry
	logger  zerolog.Logger
	metrics *metrics
}

func New(
	addr string,
	apiKey string,
	logger zerolog.Logger,
) *HttpController {
	ctrl := HttpController{
		serv: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second, //nolint: mnd
		},
		apiKey:  apiKey,
		logger:  logger,
		metrics: newMetrics(),
	}

	ctrl.serv.Handler = ctrl.Handler()

	return &ctrl
}

// Handler builds the API router. Exposed for tests and for mounting
// under an external server.
func (ctrl *HttpController) Handler() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})

	router.HandleFunc("/devices", ctrl.getDevicesHandler).Methods(http.MethodGet)
	router.HandleFunc("/devices", ctrl.postDeviceHandler).Methods(http.MethodPost)
	router.HandleFunc("/devices/discover", ctrl.postDiscoverHandler).Methods(http.MethodPost)
	router.HandleFunc("/devices/reconnect", ctrl.postReconnectHandler).Methods(http.MethodPost)
	router.HandleFunc("/devices/{address}", ctrl.getDeviceHandler).Methods(http.MethodGet)
	router.HandleFunc("/devices/{address}", ctrl.deleteDeviceHandler).Methods(http.MethodDelete)
	router.HandleFunc("/status", ctrl.getStatusHandler).Methods(http.MethodGet)
	router.Use(ctrl.metricsMW, ctrl.authMW)

	return router
}

func (ctrl *HttpController) Metrics() []prometheus.Collector {
	return ctrl.metrics.list()
}

// Bind sets registry served by handlers without starting the server.
func (ctrl *HttpController) Bind(reg model.Registry) {
	ctrl.reg = reg
}

func (ctrl *HttpController) Start(ctx context.Context, reg model.Registry) (resErr error) {
	ctrl.Bind(reg)
	var wg sync.WaitGroup
	defer wg.Wait()

	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctrl.logger.Info().Str("addr", ctrl.serv.Addr).Msg("serving http api")
		if err := ctrl.serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) {
			resErr = errors.Join(resErr, fmt.Errorf("running context: %w", ctx.Err()))
		}

		sdCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := ctrl.serv.Shutdown(sdCtx); err != nil {
			resErr = errors.Join(resErr, fmt.Errorf("shutting down server: %w", err))
		}
		return resErr

	case err := <-errCh:
		return fmt.Errorf("running server: %w", err)
	}
}

func (ctrl *HttpController) authMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if ctrl.apiKey != "" && req.Header.Get("X-Api-Key") != ctrl.apiKey {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, req)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.code = code
	rec.ResponseWriter.WriteHeader(code)
}

func (ctrl *HttpController) metricsMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		route := req.URL.Path
		if cur := mux.CurrentRoute(req); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		defer func(ts time.Time) {
			ctrl.metrics.handleTimeHist.WithLabelValues(route).Observe(float64(time.Since(ts)))
			ctrl.metrics.requestsCnt.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		}(time.Now())

		next.ServeHTTP(rec, req)
	})
}

func (ctrl *HttpController) getDevicesHandler(w http.ResponseWriter, _ *http.Request) {
	_ = http_helpers.RespondOK(w, dto.NewDevices(ctrl.reg.Devices()))
}

func (ctrl *HttpController) getDeviceHandler(w http.ResponseWriter, req *http.Request) {
	address, found := mux.Vars(req)["address"]
	if !found {
		err := errors.New("missing address")
		ctrl.logger.Error().Err(err).Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	}

	rec, found := ctrl.reg.GetDevice(address)
	if !found {
		_ = http_helpers.RespondWithErr(w, http.StatusNotFound, model.DeviceNotFoundError{Address: address})
		return
	}

	_ = http_helpers.RespondOK(w, dto.NewDevice(rec))
}

func (ctrl *HttpController) postDeviceHandler(w http.ResponseWriter, req *http.Request) {
	body := dto.AddDeviceRequest{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		ctrl.logger.
			Error().
			Err(fmt.Errorf("decoding body dto: %w", err)).
			Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	}

	rec, err := ctrl.reg.AddDevice(req.Context(), body.Address)
	switch {
	case errors.Is(err, model.ErrEmptyAddress):
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	case err != nil:
		ctrl.logger.
			Error().
			Err(fmt.Errorf("adding device: %w", err)).
			Send()
		_ = http_helpers.RespondWithErr(w, http.StatusInternalServerError, nil)
		return
	}

	_ = http_helpers.RespondOK(w, dto.NewDevice(rec))
}

func (ctrl *HttpController) postDiscoverHandler(w http.ResponseWriter, req *http.Request) {
	body := dto.DiscoverRequest{}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		ctrl.logger.
			Error().
			Err(fmt.Errorf("decoding body dto: %w", err)).
			Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	}

	batch := ctrl.reg.FetchDevices(req.Context(), body.Addresses)

	_ = http_helpers.RespondOK(w, dto.DiscoverResponse{
		Detected: ctrl.reg.NumberOfDetectedDevices(),
		Devices:  dto.NewDevices(batch.Records),
	})
}

func (ctrl *HttpController) postReconnectHandler(w http.ResponseWriter, req *http.Request) {
	batch := ctrl.reg.ReconnectDevice(req.Context())
	_ = http_helpers.RespondOK(w, dto.NewDevices(batch.Records))
}

func (ctrl *HttpController) deleteDeviceHandler(w http.ResponseWriter, req *http.Request) {
	address, found := mux.Vars(req)["address"]
	if !found {
		err := errors.New("missing address")
		ctrl.logger.Error().Err(err).Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	}

	if !ctrl.reg.DeleteDevice(address) {
		ctrl.logger.Debug().Str("address", address).Msg("deleting unknown device")
	}

	_ = http_helpers.RespondOK(w, nil)
}

func (ctrl *HttpController) getStatusHandler(w http.ResponseWriter, _ *http.Request) {
	_ = http_helpers.RespondOK(w, dto.Status{
		Loading:  ctrl.reg.Loading(),
		Detected: ctrl.reg.NumberOfDetectedDevices(),
		Count:    len(ctrl.reg.Devices()),
	})
}
