// Package walletlog is a thin zerolog adapter used by pkg/wallet and
// cmd/ivcnotes-demo, giving the note engine the same
// structured-logging ambient stack the rest of the example pack carries
// even though the teacher itself never logs.
package walletlog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Logger returns the process-wide structured logger, initialized lazily
// with a human-readable console writer in the style zerolog's own
// quickstart examples use.
func Logger() zerolog.Logger {
	once.Do(func() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().
			Timestamp().
			Logger()
	})
	return logger
}

// Named returns a child logger tagged with component, e.g.
// walletlog.Named("wallet") or walletlog.Named("prover").
func Named(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}
