package badger_device_records

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger"
	"github.com/rs/zerolog"
)

var _ badger.Logger = badgerLogger{}

// badgerLogger routes badger internal messages to zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Trace().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Open opens (creating if needed) badger db in dir with logs routed to logger.
func Open(dir string, logger zerolog.Logger) (*badger.DB, error) {
	db, err := badger.Open(
		badger.DefaultOptions(dir).
			WithLogger(badgerLogger{logger: logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return db, nil
}
