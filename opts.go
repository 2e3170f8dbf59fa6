package devreg

import (
	"errors"
	"fmt"
	"time"

	"github.com/horockey/go-toolbox/options"
	"github.com/rs/zerolog"
)

// Sets custom app data dir. Devices file is kept at <dir>/cogmote/devices.json.
// Default is os.UserConfigDir().
func WithDataDir(dir string) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if dir == "" {
			return errors.New("got empty data dir")
		}
		target.dataDir = dir
		return nil
	}
}

// Sets custom port devices answer probes on.
// Default is 9012.
func WithProbePort(p int) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("port must be in (0, 65535], got: %d", p)
		}
		target.probePort = p
		return nil
	}
}

// Sets custom timeout of a single probe.
// Default is 1s.
func WithProbeTimeout(to time.Duration) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if to <= 0 {
			return fmt.Errorf("probe timeout must be positive, got: %s", to.String())
		}
		target.probeTimeout = to
		return nil
	}
}

// Limits count of probes running at once.
// Default is 0, meaning no limit.
func WithConcurrency(n int) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if n < 0 {
			return fmt.Errorf("concurrency must not be negative, got: %d", n)
		}
		target.concurrency = n
		return nil
	}
}

// Sets listen address of HTTP controller.
// Default is 127.0.0.1:9013.
func WithHTTPAddr(addr string) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if addr == "" {
			return errors.New("got empty http addr")
		}
		target.httpAddr = addr
		return nil
	}
}

// Requires X-Api-Key header on HTTP controller requests.
// Default is empty, meaning no check.
func WithAPIKey(key string) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		target.apiKey = key
		return nil
	}
}

// Sets custom logger.
// Default is stdout logger.
func WithLogger(l zerolog.Logger) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		target.logger = l
		return nil
	}
}

// Sets user-defined store.
// Default is JSON file store in data dir.
func WithStore(s Store) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if s == nil {
			return errors.New("got nil store")
		}
		target.store = s
		return nil
	}
}

// Sets user-defined prober.
// Default is HTTP prober.
//
// WARNING! Probe port and timeout opts are ignored when this one is applied.
func WithProber(p Prober) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if p == nil {
			return errors.New("got nil prober")
		}
		target.prober = p
		return nil
	}
}

// Sets user-defined controller.
// Default is HTTP.
func WithController(ctrl Controller) options.Option[createRegistryParams] {
	return func(target *createRegistryParams) error {
		if ctrl == nil {
			return errors.New("got nil controller")
		}
		target.controller = ctrl
		return nil
	}
}
